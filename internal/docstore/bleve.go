package docstore

import (
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// lexicalIndex is the Bleve-backed lexical leg of hybrid search. Each chunk is
// indexed under its chunk ID with its content and project scope.
type lexicalIndex struct {
	index bleve.Index
}

type lexicalDoc struct {
	Content   string `json:"content"`
	ProjectID string `json:"project_id"`
}

// newLexicalIndex creates or opens a Bleve index at path. An existing index is
// reused so lexical search survives restarts without a full re-index; remove
// the directory to force a rebuild after a mapping change.
func newLexicalIndex(path string) (*lexicalIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &lexicalIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	contentMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps term
	// matching literal across spreadsheet vocabulary.
	contentMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", contentMapping)
	projectMapping := bleve.NewTextFieldMapping()
	projectMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("project_id", projectMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &lexicalIndex{index: index}, nil
}

func (l *lexicalIndex) indexChunk(id string, projectID int64, content string) error {
	return l.index.Index(id, lexicalDoc{
		Content:   content,
		ProjectID: strconv.FormatInt(projectID, 10),
	})
}

func (l *lexicalIndex) deleteChunk(id string) error {
	return l.index.Delete(id)
}

// search returns max-normalized lexical scores in [0,1] keyed by chunk ID for
// the project's chunks matching queryText.
func (l *lexicalIndex) search(projectID int64, queryText string, limit int) (map[string]float64, error) {
	match := bleve.NewMatchQuery(queryText)
	match.SetField("content")
	scope := bleve.NewTermQuery(strconv.FormatInt(projectID, 10))
	scope.SetField("project_id")
	q := bleve.NewConjunctionQuery(match, scope)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := l.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	scores := make(map[string]float64, len(res.Hits))
	var max float64
	for _, hit := range res.Hits {
		if hit.Score > max {
			max = hit.Score
		}
	}
	for _, hit := range res.Hits {
		if max > 0 {
			scores[hit.ID] = hit.Score / max
		}
	}
	return scores, nil
}

func (l *lexicalIndex) close() error {
	return l.index.Close()
}
