package visuals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"

	"riskcast/internal/forecast"
	"riskcast/internal/simulation"
)

// chartScript renders the percentile bars client-side from the JSON embedded
// in the report. It is kept readable here and minified at build time.
const chartScript = `
(function () {
  var data = JSON.parse(document.getElementById("forecast-data").textContent);
  var forecast = data.forecast || {};
  var entities = (forecast.milestones || []).concat(forecast.work_items || []);
  if (entities.length === 0) {
    return;
  }

  var maxDays = 1;
  entities.forEach(function (e) {
    var p = e.finish_day_percentiles || {};
    if (p.p99 > maxDays) {
      maxDays = p.p99;
    }
  });

  var bands = [
    { key: "p50", label: "P50", color: "#3182bd" },
    { key: "p80", label: "P80", color: "#6baed6" },
    { key: "p90", label: "P90", color: "#9ecae1" },
    { key: "p99", label: "P99", color: "#c6dbef" }
  ];

  var root = document.getElementById("charts");
  entities.forEach(function (e) {
    var row = document.createElement("div");
    row.className = "chart-row";

    var name = document.createElement("div");
    name.className = "chart-name";
    name.textContent = e.name || e.id;
    row.appendChild(name);

    var track = document.createElement("div");
    track.className = "chart-track";
    var p = e.finish_day_percentiles || {};
    // Widest band first so the narrower ones paint on top of it.
    for (var i = bands.length - 1; i >= 0; i--) {
      var band = bands[i];
      var bar = document.createElement("div");
      bar.className = "chart-bar";
      bar.style.width = (100 * (p[band.key] || 0) / maxDays) + "%";
      bar.style.background = band.color;
      bar.title = band.label + ": " + (p[band.key] || 0).toFixed(1) + "d";
      track.appendChild(bar);
    }
    row.appendChild(track);

    var value = document.createElement("div");
    value.className = "chart-value";
    value.textContent = (p.p80 || 0).toFixed(1) + "d @ P80";
    row.appendChild(value);

    root.appendChild(row);
  });
})();
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) float64 { return v * 100 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Schedule Forecast {{.ReferenceDate}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem auto; max-width: 64rem; color: #222; }
  h1 { font-size: 1.4rem; }
  h2 { font-size: 1.1rem; margin-top: 2rem; }
  .meta { color: #666; font-size: 0.85rem; }
  .badge { display: inline-block; padding: 0.15rem 0.6rem; border-radius: 0.8rem; font-size: 0.8rem; font-weight: 600; }
  .badge.high { background: #ddf2dd; color: #1c691c; }
  .badge.medium { background: #fff0cc; color: #8a6100; }
  .badge.low { background: #ffd9d9; color: #a11; }
  .summary { background: #f7f8fa; border-left: 3px solid #3182bd; padding: 0.8rem 1rem; }
  table { border-collapse: collapse; width: 100%; font-size: 0.9rem; }
  th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #e3e3e3; }
  th { background: #f2f2f2; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .chart-row { display: flex; align-items: center; gap: 0.6rem; margin: 0.35rem 0; }
  .chart-name { flex: 0 0 14rem; font-size: 0.85rem; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
  .chart-track { flex: 1; position: relative; height: 1.1rem; background: #f2f2f2; border-radius: 0.2rem; }
  .chart-bar { position: absolute; left: 0; top: 0; height: 100%; border-radius: 0.2rem; }
  .chart-value { flex: 0 0 7rem; font-size: 0.8rem; color: #555; text-align: right; }
</style>
</head>
<body>
<h1>Schedule Forecast <span class="badge {{.ConfidenceClass}}">{{.Confidence}} confidence</span></h1>
<p class="meta">Reference date {{.ReferenceDate}} · {{.Trials}} trials · seed {{.Seed}} · generated {{.GeneratedAt}}</p>
<div class="summary">{{.Summary}}</div>

{{if .Milestones}}
<h2>Milestones</h2>
<table>
<tr><th>Milestone</th><th>P50</th><th>P80</th><th>P90</th><th>On time</th><th>Expected delay</th></tr>
{{range .Milestones}}
<tr>
  <td>{{if .Name}}{{.Name}}{{else}}{{.ID}}{{end}}</td>
  <td>{{.PercentileDates.P50}}</td>
  <td>{{.PercentileDates.P80}}</td>
  <td>{{.PercentileDates.P90}}</td>
  <td class="num">{{printf "%.0f%%" (pct .ProbabilityOnTime)}}</td>
  <td class="num">{{printf "%.1fd" .ExpectedDelayDays}}</td>
</tr>
{{end}}
</table>
{{end}}

{{if .Breakdown}}
<h2>Delay contribution at P80</h2>
<table>
<tr><th>Cause</th><th>Days</th></tr>
{{range .Breakdown}}
<tr><td>{{.Cause}}</td><td class="num">{{printf "%.1f" .Days}}</td></tr>
{{end}}
</table>
{{end}}

<h2>Finish spread</h2>
<div id="charts"></div>

{{if .Items}}
<h2>Work items</h2>
<table>
<tr><th>Item</th><th>P50</th><th>P80</th><th>P90</th><th>P99</th></tr>
{{range .Items}}
<tr>
  <td>{{if .Name}}{{.Name}}{{else}}{{.ID}}{{end}}</td>
  <td>{{.PercentileDates.P50}}</td>
  <td>{{.PercentileDates.P80}}</td>
  <td>{{.PercentileDates.P90}}</td>
  <td>{{.PercentileDates.P99}}</td>
</tr>
{{end}}
</table>
{{end}}

<script id="forecast-data" type="application/json">{{.Data}}</script>
<script>{{.Script}}</script>
</body>
</html>
`))

type reportData struct {
	ReferenceDate   string
	GeneratedAt     string
	Trials          int
	Seed            int64
	Summary         string
	Confidence      string
	ConfidenceClass string
	Milestones      []simulation.MilestoneForecast
	Items           []simulation.ItemForecast
	Breakdown       []forecast.Contribution
	Data            template.JS
	Script          template.JS
}

// BuildHTMLReport renders a self-contained HTML report for one forecast: the
// full outcome JSON is embedded, the chart script is minified inline, and no
// external assets are referenced.
func BuildHTMLReport(out *forecast.Outcome) ([]byte, error) {
	if out == nil || out.Result == nil {
		return nil, fmt.Errorf("no forecast result to report")
	}

	// json.Marshal escapes angle brackets, so the payload cannot terminate
	// the surrounding script tag early.
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode forecast payload: %w", err)
	}

	minified := api.Transform(chartScript, api.TransformOptions{
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Loader:            api.LoaderJS,
	})
	if len(minified.Errors) > 0 {
		return nil, fmt.Errorf("minify chart script: %s", minified.Errors[0].Text)
	}

	var buf bytes.Buffer
	err = reportTemplate.Execute(&buf, reportData{
		ReferenceDate:   out.Result.ReferenceDate,
		GeneratedAt:     time.Now().UTC().Format("2006-01-02 15:04 UTC"),
		Trials:          out.Result.Meta.NumSimulations,
		Seed:            out.Result.Meta.SeedUsed,
		Summary:         out.Summary,
		Confidence:      out.Confidence,
		ConfidenceClass: strings.ToLower(out.Confidence),
		Milestones:      out.Result.Milestones,
		Items:           out.Result.Items,
		Breakdown:       out.Breakdown,
		Data:            template.JS(payload),
		Script:          template.JS(minified.Code),
	})
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTMLReport builds the report, writes it under dir with a timestamped
// name and optionally opens it in the default browser. It returns the path of
// the written file.
func WriteHTMLReport(out *forecast.Outcome, dir string, open bool) (string, error) {
	html, err := BuildHTMLReport(out)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("forecast-%s.html", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Info().Str("path", path).Msg("Forecast report written")

	if open {
		if err := browser.OpenFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not open report in browser")
		}
	}
	return path, nil
}
