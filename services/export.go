package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
)

// InventoryExporter renders the registry catalog as an XLSX workbook, one
// sheet per record kind.
type InventoryExporter struct {
	repo *registry.Repository
}

func NewInventoryExporter(repo *registry.Repository) *InventoryExporter {
	return &InventoryExporter{repo: repo}
}

// Export builds the workbook and returns its bytes and a filename.
func (e *InventoryExporter) Export(ctx context.Context) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeCollectionsSheet(ctx, f); err != nil {
		return nil, "", err
	}
	if err := e.writeBundlesSheet(ctx, f); err != nil {
		return nil, "", err
	}
	if err := e.writeLibrariesSheet(ctx, f); err != nil {
		return nil, "", err
	}

	// The default sheet excelize creates is replaced by our first sheet.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("CodeCollections"); err == nil {
		f.SetActiveSheet(idx)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("writing workbook: %w", err)
	}
	filename := fmt.Sprintf("registry-inventory-%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (e *InventoryExporter) writeCollectionsSheet(ctx context.Context, f *excelize.File) error {
	collections, err := e.repo.ListCodeCollections(ctx)
	if err != nil {
		return err
	}

	const sheet = "CodeCollections"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeRow(f, sheet, 1, []interface{}{"Slug", "Name", "Git URL", "Bundles", "Updated"})
	for i, c := range collections {
		writeRow(f, sheet, i+2, []interface{}{
			c.Slug, c.DisplayName, c.GitURL, c.BundleCount, c.UpdatedAt.Format(time.RFC3339),
		})
	}
	return nil
}

func (e *InventoryExporter) writeBundlesSheet(ctx context.Context, f *excelize.File) error {
	bundles, err := e.repo.ListCodeBundles(ctx, registry.BundleFilter{})
	if err != nil {
		return err
	}

	const sheet = "CodeBundles"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeRow(f, sheet, 1, []interface{}{"Slug", "Collection", "Type", "Platform", "Tags", "Description"})
	for i, b := range bundles {
		writeRow(f, sheet, i+2, []interface{}{
			b.Slug, b.CodeCollectionSlug, b.Type, b.Platform, joinTags(b.SupportTags), b.Description,
		})
	}
	return nil
}

func (e *InventoryExporter) writeLibrariesSheet(ctx context.Context, f *excelize.File) error {
	libraries, err := e.repo.ListLibraries(ctx)
	if err != nil {
		return err
	}

	const sheet = "Libraries"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeRow(f, sheet, 1, []interface{}{"Slug", "Name", "Keywords", "Repo"})
	for i, l := range libraries {
		writeRow(f, sheet, i+2, []interface{}{
			l.Slug, l.DisplayName, joinTags(l.Keywords), l.RepoURL,
		})
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	f.SetSheetRow(sheet, cell, &values)
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
