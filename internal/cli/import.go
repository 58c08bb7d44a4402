package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/pubs/internal/citekey"
	"github.com/aidanlsb/pubs/internal/codec"
	"github.com/aidanlsb/pubs/internal/paper"
	"github.com/aidanlsb/pubs/internal/ui"
)

type importResult struct {
	Imported []string  `json:"imported"`
	Skipped  []string  `json:"skipped"`
	Warnings []Warning `json:"-"`
}

func newImportCmd(s *state) *cobra.Command {
	var (
		overwrite bool
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "import <file.bib|directory>...",
		Short: "Import papers from BibTeX files",
		Long: `Imports every entry of the given BibTeX files. Directories are searched
for *.bib files (not recursively). Entries whose citekey already exists are
skipped unless --overwrite is set; entries without a key get a generated one.

Examples:
  pubs import library.bib
  pubs import ~/exports/ -t imported`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := bibFiles(args)
			if err != nil {
				return fail(ErrFileNotFound, err, "")
			}

			var records []codec.Record
			for _, f := range files {
				data, err := os.ReadFile(f)
				if err != nil {
					return fail(ErrFileNotFound, err, "")
				}
				recs, err := codec.ParseBibTeX(data)
				if err != nil {
					return fail(ErrDecode, fmt.Errorf("%s: %w", f, err), "")
				}
				for _, r := range recs {
					codec.Tidy(r.Entry)
				}
				records = append(records, recs...)
			}

			res, err := importRecords(s, records, overwrite, splitList(tags))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.jsonOut() {
				return s.success(out, res, len(res.Imported), res.Warnings...)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Warning(w.Message))
			}
			fmt.Fprintln(out, ui.Successf("Imported %d of %d entries %s",
				len(res.Imported), len(records), ui.Count(len(files), "file", "files")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace papers whose citekey already exists")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags added to every imported paper")
	return cmd
}

func importRecords(s *state, records []codec.Record, overwrite bool, tags []string) (*importResult, error) {
	repo := s.app.Repo
	res := &importResult{Imported: []string{}, Skipped: []string{}}

	for _, rec := range records {
		key := rec.Key
		switch {
		case key == "" || !citekey.Valid(key):
			generated, _, err := resolveCitekey(repo, "", key, rec.Entry)
			if err != nil {
				return nil, fail("", err, "")
			}
			key = generated
		case !overwrite && repo.Contains(key):
			res.Skipped = append(res.Skipped, key)
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarnSkipped,
				Message: fmt.Sprintf("%s already exists, skipped", key),
				Citekey: key,
			})
			continue
		}

		p := paper.New(key, rec.Entry)
		if overwrite && repo.Contains(key) {
			if old, err := repo.Pull(key); err == nil {
				p.Meta = old.Meta
			}
		}
		for _, t := range tags {
			p.Meta.AddTag(t)
		}
		if err := repo.Push(p, overwrite); err != nil {
			return nil, fail("", fmt.Errorf("importing %s: %w", key, err), "")
		}
		s.app.Logger.Debug("imported", "citekey", key)
		res.Imported = append(res.Imported, key)
	}
	return res, nil
}

// bibFiles expands directories into their *.bib files.
func bibFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".bib") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
