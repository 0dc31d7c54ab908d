// Package render serializes completed jobs into the report formats: JSON,
// HTML, Markdown, and the Notion-style block document.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/scrutor/internal/models"
)

// JSON renders the full job object. It never fails: a serialization error
// produces a minimal error envelope carrying the job id instead.
func JSON(job *models.AnalysisJob) []byte {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		fallback := map[string]string{
			"error":   "Could not generate complete JSON report",
			"message": err.Error(),
			"job_id":  job.ID,
		}
		data, err = json.Marshal(fallback)
		if err != nil {
			// fixed map of strings; this cannot fail, but keep the renderer total
			return []byte(fmt.Sprintf(`{"error":"Could not generate complete JSON report","job_id":%q}`, job.ID))
		}
	}
	return data
}
