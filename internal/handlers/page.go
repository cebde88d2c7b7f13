// page.go serves the summary page that successful browser uploads redirect to.
package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// summaryPage is a shell; the data is fetched with the token the browser
// already holds, since a redirect can't carry an Authorization header.
var summaryPage = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Summary</title>
  <style>
    body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; }
    pre { white-space: pre-wrap; font-family: inherit; }
    .meta { color: #666; font-size: 0.9rem; }
  </style>
</head>
<body>
  <h1 id="title">Loading…</h1>
  <p class="meta" id="meta"></p>
  <pre id="summary"></pre>
  <script>
    const id = {{.ID}};
    const token = localStorage.getItem("token");
    const headers = token ? { "Authorization": "Bearer " + token } : {};
    fetch("/api/v1/summaries/" + encodeURIComponent(id), { headers })
      .then(r => r.ok ? r.json() : Promise.reject(r.status))
      .then(s => {
        document.getElementById("title").textContent = s.title;
        document.getElementById("meta").textContent = s.file_name + " · " + new Date(s.created_at).toLocaleString();
        document.getElementById("summary").textContent = s.summary_text;
      })
      .catch(() => { document.getElementById("title").textContent = "Summary not found"; });
  </script>
</body>
</html>`))

// SummaryPage renders the page for one summary.
// GET /summaries/:id
func (h *Handler) SummaryPage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "Summary not found")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := summaryPage.Execute(c.Writer, struct{ ID string }{id.String()}); err != nil {
		c.Error(err)
	}
}
