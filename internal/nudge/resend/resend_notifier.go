package resend

import (
	"bytes"
	"fmt"
	"html/template"
	"slices"

	"github.com/brk3/steady/pkg/habit"
	"github.com/resend/resend-go/v2"
)

const subject = "Streaks at risk today"

type ResendNotifier struct {
	ApiKey string
	From   string
	To     string
}

var emailTemplate = template.Must(template.New("email").Parse(`
<p>These habits have not been checked in today. Log them before midnight to keep the streak going:</p>
<ul>
{{range .}}
  <li>{{.Name}} ({{.Streak}} day streak)</li>
{{end}}
</ul>
`))

func render(habits []habit.View) (string, error) {
	sorted := slices.Clone(habits)
	// longest streaks first, they hurt most to lose
	slices.SortStableFunc(sorted, func(a, b habit.View) int { return b.Streak - a.Streak })

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, sorted); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ResendNotifier) SendNudge(habits []habit.View) error {
	if r.ApiKey == "" || r.To == "" {
		return fmt.Errorf("resend notifier needs an api key and a recipient")
	}
	body, err := render(habits)
	if err != nil {
		return err
	}

	client := resend.NewClient(r.ApiKey)
	params := &resend.SendEmailRequest{
		From:    r.From,
		To:      []string{r.To},
		Subject: subject,
		Html:    body,
	}
	_, err = client.Emails.Send(params)
	return err
}
