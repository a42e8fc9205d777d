package handler

import (
	"html/template"
	"net/http"

	"beltsensor/internal/logger"
	"beltsensor/internal/service/belt"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Belt sensor</title></head>
<body>
<h1>Belt sensor</h1>
<img src="/camera_ia" alt="live view">
<ul>
<li>Belt: {{if .BeltEnabled}}ON{{else}}OFF{{end}}</li>
<li>Last color: {{.LastColor}}</li>
<li>Broker: {{if .Connected}}connected{{else}}disconnected{{end}}</li>
<li>Seen: {{range $i, $c := .DetectionHistory}}{{if $i}}, {{end}}{{$c}}{{end}}</li>
</ul>
</body>
</html>
`))

// IndexHandler renders the live view page at /.
func IndexHandler(state *belt.State, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTemplate.Execute(w, state.Snapshot()); err != nil {
			logger.Error("Failed to render index: %v", err)
		}
	}
}
