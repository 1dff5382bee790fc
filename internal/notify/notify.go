package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/rs/zerolog/log"

	"wattwise/internal"
	"wattwise/internal/config"
	"wattwise/internal/pipeline"
)

const topPlanCount = 5

// Report is what one scheduled run tells its operators.
type Report struct {
	RunID     string
	Status    string
	Stats     internal.RunStats
	Published int
	TopPlans  []internal.CanonicalPlan
	Failure   string
	At        time.Time
}

// ReportFromResult summarizes a processing result. err is the run error, if any.
func ReportFromResult(res pipeline.ProcessResult, err error, at time.Time) Report {
	r := Report{
		RunID:     res.RunID,
		Status:    res.Status,
		Stats:     res.Stats,
		Published: res.Published,
		TopPlans:  topPlans(res.Plans, topPlanCount),
		At:        at,
	}
	if err != nil {
		r.Failure = err.Error()
		if r.Status == "" {
			r.Status = "failed"
		}
	}
	return r
}

func topPlans(plans []internal.CanonicalPlan, n int) []internal.CanonicalPlan {
	ranked := pipeline.RankPlans(plans)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

type Notifier struct {
	sender enmime.Sender
	from   string
	to     []string
}

func NewNotifier(sender enmime.Sender, from string, to []string) *Notifier {
	return &Notifier{sender: sender, from: from, to: to}
}

// NewNotifierFromConfig returns nil when notifications are not configured.
func NewNotifierFromConfig(cfg config.Config) *Notifier {
	if !cfg.NotifyEnabled() {
		return nil
	}
	var auth smtp.Auth
	if cfg.NotifySMTPUser != "" {
		host := cfg.NotifySMTPAddr
		if i := strings.LastIndex(host, ":"); i > 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", cfg.NotifySMTPUser, cfg.NotifySMTPPassword, host)
	}
	return NewNotifier(enmime.NewSMTP(cfg.NotifySMTPAddr, auth), cfg.NotifyFrom, cfg.NotifyTo)
}

func (n *Notifier) Send(r Report) error {
	if n == nil {
		return nil
	}
	builder, err := n.message(r)
	if err != nil {
		return err
	}
	if err := builder.Send(n.sender); err != nil {
		return fmt.Errorf("send run report %s: %w", r.RunID, err)
	}
	log.Info().Str("run_id", r.RunID).Strs("to", n.to).Msg("run report sent")
	return nil
}

func (n *Notifier) message(r Report) (enmime.MailBuilder, error) {
	htmlBody, err := renderHTML(r)
	if err != nil {
		return enmime.MailBuilder{}, err
	}
	builder := enmime.Builder().
		From("WattWise", n.from).
		Subject(Subject(r)).
		Date(r.At).
		Header("X-WattWise-Run", r.RunID).
		Text([]byte(renderText(r))).
		HTML(htmlBody)
	for _, addr := range n.to {
		builder = builder.To("", addr)
	}
	return builder, nil
}

func Subject(r Report) string {
	if r.Failure != "" {
		return fmt.Sprintf("WattWise run %s: %s", r.Status, shortID(r.RunID))
	}
	return fmt.Sprintf("WattWise run ok: %d plans published", r.Published)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type rejection struct {
	Reason string
	Count  int
}

func rejections(stats internal.RunStats) []rejection {
	out := make([]rejection, 0, len(stats.Rejected))
	for reason, n := range stats.Rejected {
		if n > 0 {
			out = append(out, rejection{Reason: string(reason), Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func renderText(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s) at %s\n", r.RunID, r.Status, r.At.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Seen: %d  Accepted: %d  Published: %d\n", r.Stats.Seen, r.Stats.Accepted, r.Published)
	if rs := rejections(r.Stats); len(rs) > 0 {
		b.WriteString("\nRejected:\n")
		for _, rj := range rs {
			fmt.Fprintf(&b, "  %-10s %d\n", rj.Reason, rj.Count)
		}
	}
	if r.Failure != "" {
		fmt.Fprintf(&b, "\nFailure: %s\n", r.Failure)
	}
	if len(r.TopPlans) > 0 {
		b.WriteString("\nLowest weighted rates:\n")
		for i, p := range r.TopPlans {
			fmt.Fprintf(&b, "  %d. %s / %s (%s) %.2f c/kWh, score %d\n",
				i+1, p.Provider, p.PlanName, p.TDU, p.WeightedRate, p.TransparencyScore)
		}
	}
	b.WriteString("\n" + pipeline.ScoreDisclaimer + "\n")
	return b.String()
}

var reportHTML = template.Must(template.New("report").Parse(`<html><body>
<h2>WattWise run {{.Report.Status}}</h2>
<p>Run <code>{{.Report.RunID}}</code>: seen {{.Report.Stats.Seen}}, accepted {{.Report.Stats.Accepted}}, published {{.Report.Published}}.</p>
{{if .Rejections}}<table border="1" cellpadding="4"><tr><th>Reason</th><th>Count</th></tr>
{{range .Rejections}}<tr><td>{{.Reason}}</td><td>{{.Count}}</td></tr>
{{end}}</table>{{end}}
{{if .Report.Failure}}<p><strong>Failure:</strong> {{.Report.Failure}}</p>{{end}}
{{if .Report.TopPlans}}<table border="1" cellpadding="4"><tr><th>Provider</th><th>Plan</th><th>TDU</th><th>Weighted rate</th><th>Score</th></tr>
{{range .Report.TopPlans}}<tr><td>{{.Provider}}</td><td>{{.PlanName}}</td><td>{{.TDU}}</td><td>{{printf "%.2f" .WeightedRate}}</td><td>{{.TransparencyScore}}</td></tr>
{{end}}</table>{{end}}
<p><small>{{.Disclaimer}}</small></p>
</body></html>`))

func renderHTML(r Report) ([]byte, error) {
	var buf bytes.Buffer
	err := reportHTML.Execute(&buf, struct {
		Report     Report
		Rejections []rejection
		Disclaimer string
	}{r, rejections(r.Stats), pipeline.ScoreDisclaimer})
	return buf.Bytes(), err
}
