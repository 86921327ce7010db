package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/sentinel-iga/sentinel/internal/mining"
)

var runTemplate = template.Must(template.New("run").Parse(`<html>
<head><title>Role Mining Report</title></head>
<body>
<h1>Role Mining Report</h1>
<p>Run {{.JobID}} &mdash; {{.Algorithm}} &mdash; completed {{.CompletedAt}}</p>
<p>{{.TotalUsers}} users, {{.UniquePermissions}} unique permissions, coverage {{printf "%.1f" .TotalCoverage}}%, silhouette {{printf "%.3f" .SilhouetteScore}}</p>
<table border="1" cellspacing="0" cellpadding="4">
<tr><th>Suggested Role</th><th>Members</th><th>Core Permissions</th><th>Cohesion</th><th>SoD Conflicts</th><th>Risk</th></tr>
{{range .Clusters}}
<tr>
<td>{{.SuggestedRoleName}}</td>
<td>{{len .MemberUserIDs}}</td>
<td>{{len .CorePermissions}}</td>
<td>{{printf "%.3f" .CohesionScore}}</td>
<td>{{len .SoDConflicts}}</td>
<td>{{printf "%.0f" .RiskScore}}</td>
</tr>
{{end}}
</table>
{{if .RoleConsolidationSuggestions}}
<h2>Consolidation Suggestions</h2>
<ul>
{{range .RoleConsolidationSuggestions}}<li>{{.}}</li>{{end}}
</ul>
{{end}}
</body>
</html>`))

// RunHTML renders a completed mining run as a printable HTML document.
func RunHTML(result *mining.MiningResult) (string, error) {
	if result == nil || result.Status != mining.RunCompleted {
		return "", fmt.Errorf("report: run has no completed result")
	}
	var buf bytes.Buffer
	if err := runTemplate.Execute(&buf, result); err != nil {
		return "", err
	}
	return buf.String(), nil
}
