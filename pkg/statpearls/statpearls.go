// Package statpearls converts an NCBI StatPearls NXML dump into a
// fragment tree: one book part at the root, one composite part per
// chapter, and one leaf part per section. Chapters that are not freely
// licensed are left out.
package statpearls

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pearldb/internal/timing"
	"pearldb/internal/util"
	"pearldb/pkg/logger"
	"pearldb/pkg/parts"
)

const licenseCCByNcNd4 = "This work is licensed under the Creative Commons " +
	"Attribution-NonCommercial-NoDerivatives 4.0 International License. " +
	"To view a copy of this license, " +
	"visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to Creative Commons, " +
	"PO Box 1866, Mountain View, CA 94042, USA."

const (
	bookTitle = "StatPearls"
	bookURL   = "https://www.ncbi.nlm.nih.gov/books/n/statpearls/"
)

func articleURL(articleID string) string {
	return fmt.Sprintf("https://www.ncbi.nlm.nih.gov/books/n/statpearls/%s/", articleID)
}

func sectionURL(articleID, sectionID string) string {
	return articleURL(articleID) + "#" + sectionID
}

// partName escapes a title for use as a file name.
func partName(title string) string {
	return strings.ReplaceAll(title, "/", "&")
}

// Stats summarizes a finished conversion.
type Stats struct {
	Files    int
	Articles int
	Sections int
}

// Convert reads every .nxml file in inputDir in name order and writes
// the fragment tree for the whole book under outputDir. Files that do
// not parse are logged and skipped; files that parse but are not
// eligible chapters are skipped silently.
func Convert(ctx context.Context, inputDir, outputDir string) (*Stats, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input folder: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	bookPath := filepath.Join(outputDir, bookTitle)
	bookParts := bookPath + parts.PartsSuffix

	stats := &Stats{}
	bookChildren := make([]string, 0)

	span := timing.Start("convert")
	progress := util.NewProgress("convert", len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Tick()
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".nxml" {
			continue
		}
		stats.Files++

		data, err := os.ReadFile(filepath.Join(inputDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		article, err := parseArticle(data)
		if err != nil {
			logger.Warn("failed to parse article", "file", entry.Name(), "err", err)
			continue
		}
		if article == nil {
			continue
		}

		if err := writeArticle(bookParts, article); err != nil {
			return nil, err
		}
		bookChildren = append(bookChildren, filepath.Join(filepath.Base(bookParts), partName(article.Title)))
		stats.Articles++
		stats.Sections += len(article.Sections)
	}
	span.Done("files", stats.Files, "articles", stats.Articles, "sections", stats.Sections)

	if err := parts.WriteMeta(bookPath, &parts.Meta{
		Title: parts.Some(bookTitle),
		URL:   bookURL,
		Parts: bookChildren,
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

// writeArticle stores one chapter as a composite part with one leaf
// part per section.
func writeArticle(bookParts string, article *Article) error {
	articlePath := filepath.Join(bookParts, partName(article.Title))
	articleParts := articlePath + parts.PartsSuffix
	if err := os.MkdirAll(articleParts, 0o755); err != nil {
		return err
	}

	children := make([]string, 0, len(article.Sections))
	for _, section := range article.Sections {
		name := partName(section.Title)
		partPath := filepath.Join(articleParts, name)
		if err := os.WriteFile(partPath+".md", []byte(strings.TrimSpace(section.Contents)), 0o644); err != nil {
			return err
		}
		if err := parts.WriteMeta(partPath, &parts.Meta{
			Title:   parts.Some(section.Title),
			URL:     sectionURL(article.ID, section.ID),
			Content: name + ".md",
		}); err != nil {
			return err
		}
		children = append(children, filepath.Join(filepath.Base(articleParts), name))
	}

	return parts.WriteMeta(articlePath, &parts.Meta{
		Title:     parts.Some(article.Title),
		URL:       articleURL(article.ID),
		Copyright: article.Copyright,
		License:   article.License,
		Parts:     children,
	})
}
