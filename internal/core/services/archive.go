package services

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

const (
	// ByCategoryDir holds the flat cross-server index of an account.
	ByCategoryDir = "_ByCategory"

	// SummariesDir holds one summary file per dumped server.
	SummariesDir = "_Summaries"

	maxSegmentRunes = 80
	previewRunes    = 40
	noTextPreview   = "no_text"
	emptyBodyMarker = "[empty]"
	recordSeparator = "---"

	// FileTimestampLayout prefixes every record file name.
	FileTimestampLayout = "2006-01-02_15-04-05"
)

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	whitespaceRun  = regexp.MustCompile(`[\s\p{Z}]+`)
	underscoreRun  = regexp.MustCompile(`_{2,}`)
)

// Sanitize turns a display name into a safe single path segment.
// Forbidden characters and whitespace become underscores, runs of
// underscores collapse, and the result is capped at 80 runes.
// Sanitize is a fixed point: Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	s := forbiddenChars.ReplaceAllString(name, "_")
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	if utf8.RuneCountInString(s) > maxSegmentRunes {
		s = string([]rune(s)[:maxSegmentRunes])
	}
	switch {
	case s == "":
		return "unknown"
	case strings.Trim(s, ".") == "":
		// "." and ".." would escape the parent directory.
		return "_"
	}
	return s
}

// Preview is the sanitized start of a body used in record file names.
func Preview(body string) string {
	if body == "" {
		return Sanitize(noTextPreview)
	}
	return Sanitize(truncateRunes(body, previewRunes))
}

// RecordPaths are the two archive keys written for one item.
type RecordPaths struct {
	// Primary is account/author/server/category/<ts>_<preview>.txt.
	Primary string

	// Secondary is account/_ByCategory/category/<ts>_<author>_<server>_<preview>.txt.
	Secondary string
}

// ArchivePaths builds both record keys for an item. Both archive roots
// (bulk dumps and live collection) use this layout.
func ArchivePaths(account, author, scope string, category domain.Category, item domain.Item) RecordPaths {
	acc := Sanitize(account)
	auth := Sanitize(author)
	srv := Sanitize(scope)
	cat := Sanitize(category.String())
	ts := recordTime(item).Format(FileTimestampLayout)
	preview := Preview(item.Body)

	return RecordPaths{
		Primary:   path.Join(acc, auth, srv, cat, ts+"_"+preview+".txt"),
		Secondary: path.Join(acc, ByCategoryDir, cat, ts+"_"+auth+"_"+srv+"_"+preview+".txt"),
	}
}

// SummaryPath is the key of a server's summary file.
func SummaryPath(account string, scope domain.Scope) string {
	return path.Join(Sanitize(account), SummariesDir, Sanitize(scope.Name)+"_"+Sanitize(scope.ID)+".txt")
}

func recordTime(item domain.Item) time.Time {
	if item.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return item.CreatedAt.UTC()
}

// RecordContext carries the display names printed in a record header.
type RecordContext struct {
	Account   string
	Author    string
	Scope     string
	Container string
}

// FormatRecord renders a record file. The secondary view also names the
// author and server, since its directory does not.
func FormatRecord(rc RecordContext, item domain.Item, category domain.Category, secondary bool) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", recordTime(item).Format(time.RFC3339))
	if secondary {
		fmt.Fprintf(&b, "Author: %s\n", rc.Author)
		fmt.Fprintf(&b, "Server: %s\n", rc.Scope)
	}
	fmt.Fprintf(&b, "Channel: %s\n", rc.Container)
	fmt.Fprintf(&b, "Message ID: %s\n", item.ID)
	fmt.Fprintf(&b, "Category: %s\n", category)
	b.WriteString(recordSeparator + "\n\n")

	if item.Body == "" {
		b.WriteString(emptyBodyMarker)
	} else {
		b.WriteString(item.Body)
	}

	if len(item.AttachmentURLs) > 0 {
		b.WriteString("\n\nAttachments:\n")
		for i, u := range item.AttachmentURLs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, u)
		}
	}
	return []byte(b.String())
}

// WriteOutcome reports what happened to one item.
// Err is set only for storage faults; the item is still counted
// under Category by the caller.
type WriteOutcome struct {
	Category domain.Category
	Paths    RecordPaths
	Err      error
}

// ArchiveWriter persists classified items into an archive root.
type ArchiveWriter struct {
	storage driven.ArchiveStorage
}

// NewArchiveWriter creates a writer over a storage root.
func NewArchiveWriter(storage driven.ArchiveStorage) *ArchiveWriter {
	return &ArchiveWriter{storage: storage}
}

// Location returns the storage root.
func (w *ArchiveWriter) Location() string {
	return w.storage.Location()
}

// Write stores both views of an item. Storage errors are returned in
// the outcome, never as a panic or abort.
func (w *ArchiveWriter) Write(
	ctx context.Context,
	scopeName, containerName string,
	item domain.Item,
	category domain.Category,
	account string,
) WriteOutcome {
	author := item.AuthorName
	if author == "" {
		author = domain.UnknownAccountName
	}
	rc := RecordContext{Account: account, Author: author, Scope: scopeName, Container: containerName}
	paths := ArchivePaths(account, author, scopeName, category, item)
	out := WriteOutcome{Category: category, Paths: paths}

	if err := w.storage.Put(ctx, paths.Primary, FormatRecord(rc, item, category, false)); err != nil {
		out.Err = fmt.Errorf("write %s: %w", paths.Primary, err)
		return out
	}
	if err := w.storage.Put(ctx, paths.Secondary, FormatRecord(rc, item, category, true)); err != nil {
		out.Err = fmt.Errorf("write %s: %w", paths.Secondary, err)
	}
	return out
}

// WriteSummary stores a server's summary file.
func (w *ArchiveWriter) WriteSummary(ctx context.Context, s domain.ScopeSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Server: %s\n", s.Scope.Name)
	fmt.Fprintf(&b, "Server ID: %s\n", s.Scope.ID)
	fmt.Fprintf(&b, "Account: %s\n", s.Account)
	fmt.Fprintf(&b, "Dumped: %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Messages: %d\n", s.ItemsTotal)
	b.WriteString(recordSeparator + "\n\nChannels:\n")
	for _, c := range s.Containers {
		line := fmt.Sprintf("  #%s: %d messages", c.Name, c.Items)
		if c.Skipped {
			line += " (" + c.SkipNote + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\nCategories:\n")
	for _, cat := range domain.AllCategories() {
		if n := s.CategoryTotals[cat]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", cat, n)
		}
	}
	key := SummaryPath(s.Account, s.Scope)
	if err := w.storage.Put(ctx, key, []byte(b.String())); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
