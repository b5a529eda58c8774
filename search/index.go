// Package search maintains an in-memory full-text index over the mailbox
// so conversation history is findable without paging through timelines.
// The index is rebuilt per session and fed by the sync loop; it is never
// a source of truth.
package search

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"

	"team-mail/domain"
)

const defaultLimit = 10

// Index wraps a single in-memory bluge writer.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Add indexes one message. Updating an already-indexed id replaces the
// previous document, so replays from the sync loop converge. The content
// language is detected and stored so mixed-language results stay
// distinguishable.
func (i *Index) Add(m domain.Message) error {
	doc := bluge.NewDocument(m.ID).
		AddField(bluge.NewTextField("content", m.Content).StoreValue()).
		AddField(bluge.NewKeywordField("from", m.FromUserID).StoreValue()).
		AddField(bluge.NewKeywordField("lang", detectLang(m.Content)).StoreValue()).
		AddField(bluge.NewDateTimeField("at", m.Timestamp))

	return i.writer.Update(doc.ID(), doc)
}

// Hit is one search result.
type Hit struct {
	MessageID  string
	FromUserID string
	Content    string
	Lang       string
	Score      float64
}

// Search runs a parsed query and returns the best hits.
func (i *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(q.Terms).SetField("content"))
	if q.From != "" {
		query.AddMust(bluge.NewTermQuery(q.From).SetField("from"))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		hit := Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "from":
				hit.FromUserID = string(value)
			case "content":
				hit.Content = string(value)
			case "lang":
				hit.Lang = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Query represents structured search parameters, decoupling the raw user
// input from the index engine.
type Query struct {
	RawInput string
	Terms    string
	From     string // restrict to one sender id
	Limit    int
}

// ParseQuery extracts command-line style arguments from a raw input.
// Example: meeting notes --from 3 --limit 5
func ParseQuery(input string) Query {
	q := Query{RawInput: input, Limit: defaultLimit}

	parts := strings.Fields(input)
	var terms []string
	for idx := 0; idx < len(parts); idx++ {
		part := parts[idx]

		if strings.HasPrefix(part, "--") && idx+1 < len(parts) {
			value := parts[idx+1]
			switch strings.TrimPrefix(part, "--") {
			case "from":
				q.From = value
			case "limit":
				if n, err := strconv.Atoi(value); err == nil && n > 0 {
					q.Limit = n
				}
			}
			idx++
			continue
		}
		terms = append(terms, part)
	}

	q.Terms = strings.Join(terms, " ")
	return q
}

// detectLang tags content with an ISO 639-3 code, "und" when detection
// has nothing to work with.
func detectLang(content string) string {
	if strings.TrimSpace(content) == "" {
		return "und"
	}
	info := whatlanggo.Detect(content)
	if code := whatlanggo.LangToString(info.Lang); code != "" {
		return code
	}
	return "und"
}
