package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

var emailFuncs = template.FuncMap{
	"kes":   formatKES,
	"title": periodTitle,
}

var alertTemplate = template.Must(template.New("alert").Funcs(emailFuncs).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Threat Alert</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { color: white; padding: 20px; border-radius: 5px; }
        .CRITICAL { background-color: #d13438; }
        .HIGH { background-color: #ff8c00; }
        .MEDIUM { background-color: #ffb900; }
        .LOW { background-color: #107c10; }
        .details { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="header {{.ThreatLevel}}">
        <h1>{{.ThreatLevel}} Threat Alert</h1>
        <p>{{.Title}}</p>
    </div>

    <div class="details">
        <p>{{.Description}}</p>
        <p><strong>Agencies notified:</strong> {{range $i, $a := .AgenciesNotified}}{{if $i}}, {{end}}{{$a}}{{end}}</p>
        <p><strong>Estimated impact:</strong> {{kes .EstimatedImpact}}</p>
        {{if .Location}}<p><strong>County:</strong> {{.Location.County}}</p>{{end}}
        <p><strong>Created:</strong> {{.CreatedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    {{if .RecommendedActions}}
    <h2>Recommended Actions</h2>
    <ul>{{range .RecommendedActions}}<li>{{.}}</li>{{end}}</ul>
    {{end}}

    <hr>
    <p><small>Alert {{.ID}} was generated automatically by the Fusion Centre API.</small></p>
</body>
</html>
`))

var digestTemplate = template.Must(template.New("digest").Funcs(emailFuncs).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Fusion Centre Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #004b1c; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .alert { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Fusion Centre {{title .Period}} Digest</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Reports:</strong> {{.TotalReports}}</p>
        <p><strong>Alerts:</strong> {{.TotalAlerts}}</p>
        {{range $level, $count := .ByLevel}}<p><strong>{{$level}}:</strong> {{$count}}</p>{{end}}
    </div>

    {{if .ByAgency}}
    <h2>Reports by Agency</h2>
    <ul>{{range $agency, $count := .ByAgency}}<li>{{$agency}}: {{$count}}</li>{{end}}</ul>
    {{end}}

    {{if .TopAlerts}}
    <h2>Top Alerts</h2>
    {{range .TopAlerts}}
    <div class="alert">
        <strong>{{.ThreatLevel}}</strong> {{.Title}} | {{kes .EstimatedImpact}} | {{.Status}}
    </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the Fusion Centre API.</small></p>
</body>
</html>
`))

func renderAlertHTML(alert models.Alert) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, alert); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderDigestHTML(digest *models.Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildAlertText(alert models.Alert) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("%s THREAT ALERT\n", alert.ThreatLevel))
	text.WriteString(fmt.Sprintf("%s\n\n", alert.Title))
	text.WriteString(fmt.Sprintf("%s\n\n", alert.Description))
	text.WriteString(fmt.Sprintf("Agencies notified: %s\n", strings.Join(alert.AgenciesNotified, ", ")))
	text.WriteString(fmt.Sprintf("Estimated impact: %s\n", formatKES(alert.EstimatedImpact)))
	if alert.Location != nil && alert.Location.County != "" {
		text.WriteString(fmt.Sprintf("County: %s\n", alert.Location.County))
	}

	if len(alert.RecommendedActions) > 0 {
		text.WriteString("\nRECOMMENDED ACTIONS\n")
		text.WriteString("===================\n")
		for i, action := range alert.RecommendedActions {
			text.WriteString(fmt.Sprintf("%d. %s\n", i+1, action))
		}
	}

	text.WriteString(fmt.Sprintf("\n---\nAlert %s was generated automatically by the Fusion Centre API.\n", alert.ID))
	return text.String()
}

func buildDigestText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Fusion Centre Digest - %s\n", periodTitle(digest.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Reports: %d\n", digest.TotalReports))
	text.WriteString(fmt.Sprintf("Alerts: %d\n", digest.TotalAlerts))
	for _, fact := range sortedFacts(digest.ByLevel) {
		text.WriteString(fmt.Sprintf("%s: %s\n", fact.Name, fact.Value))
	}

	if len(digest.TopAlerts) > 0 {
		text.WriteString("\nTOP ALERTS\n")
		text.WriteString("==========\n")
		for i, a := range digest.TopAlerts {
			text.WriteString(fmt.Sprintf("%d. [%s] %s (%s)\n", i+1, a.ThreatLevel, a.Title, a.Status))
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by the Fusion Centre API.\n")
	return text.String()
}
