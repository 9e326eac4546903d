package publish

import (
	"time"

	"git.home.luguber.info/inful/izupress/internal/eventstore"
	"git.home.luguber.info/inful/izupress/internal/media"
)

// Document kinds.
const (
	KindIndex   = "index"
	KindArticle = "article"
	KindBlog    = "blog"
)

// Failure is a document that could not be published.
type Failure struct {
	Document string
	Kind     string
	Err      error
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Trigger   string
	Status    string
	Documents int
	// Unchanged counts documents whose output was known to be current.
	Unchanged    int
	Failures     []Failure
	PagesWritten int64
	PagesSkipped int64
	Media        media.Stats
	// Written lists the pages written, relative to the output directory.
	Written  []string
	Commit   string
	Duration time.Duration
	// Fatal is the error that stopped the run early, if any.
	Fatal error
}

// Err returns the error of the first failed document.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	return s.Failures[0].Err
}

func (s *Summary) firstError() error {
	if s.Fatal != nil {
		return s.Fatal
	}
	return s.Err()
}

func (s *Summary) status() string {
	switch {
	case s.Fatal != nil:
		return eventstore.StatusFailed
	case len(s.Failures) == 0:
		return eventstore.StatusSuccess
	case len(s.Failures) < s.Documents:
		return eventstore.StatusPartial
	default:
		return eventstore.StatusFailed
	}
}
