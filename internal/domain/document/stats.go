package document

import "github.com/khojilab/khoji/internal/domain"

// Stats summarizes the index contents for the statistics endpoint.
type Stats struct {
	TotalDocuments    int                        `json:"totalDocuments"`
	ByContentType     map[domain.ContentType]int `json:"byContentType"`
	ByLanguage        map[domain.Language]int    `json:"byLanguage"`
	Published         int                        `json:"published"`
	Active            int                        `json:"active"`
	AvgRelevanceScore float64                    `json:"avgRelevanceScore"`
}
