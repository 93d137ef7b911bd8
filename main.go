/* SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * Zymatik Annonars - A read-optimized genomic variant annotation store.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/zymatik-com/annonars/internal/buildinfo"
	"github.com/zymatik-com/annonars/internal/genes"
	"github.com/zymatik-com/annonars/internal/httpapi"
	"github.com/zymatik-com/annonars/internal/importer/dbsnpimport"
	"github.com/zymatik-com/annonars/internal/importer/freqmerge"
	"github.com/zymatik-com/annonars/internal/importer/geneimport"
	"github.com/zymatik-com/annonars/internal/importer/gffimport"
	"github.com/zymatik-com/annonars/internal/importer/svimport"
	"github.com/zymatik-com/annonars/internal/importer/textimport"
	"github.com/zymatik-com/annonars/internal/importer/vcfimport"
	"github.com/zymatik-com/annonars/internal/interval"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

var logger *slog.Logger

func main() {
	var showProgress bool

	initLogging := func(c *cli.Context) error {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: (*slog.Level)(c.Generic("log-level").(*logLevelFlag)),
		}))
		showProgress = c.Bool("show-progress")
		return nil
	}

	sharedFlags := []cli.Flag{
		&cli.GenericFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set the log level",
			Value:   fromLogLevel(slog.LevelInfo),
		},
		&cli.BoolFlag{
			Name:    "show-progress",
			Aliases: []string{"p"},
			Usage:   "Show progress bars",
			Value:   true,
		},
	}

	datasetFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "path-out",
			Usage:    "Path to the dataset's on-disk store directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "genome-release",
			Usage: "Genome release this dataset was built against (grch37|grch38)",
			Value: "grch38",
		},
		&cli.StringFlag{
			Name:  "db-version",
			Usage: "Upstream release/version string recorded in meta:db-version",
			Value: "unknown",
		},
	}

	app := &cli.App{
		Name:    "annonars",
		Usage:   "Build and serve a read-optimized genomic variant annotation store",
		Flags:   sharedFlags,
		Before:  initLogging,
		Version: buildinfo.Version,
		Commands: []*cli.Command{
			importVCFCommand(sharedFlags, datasetFlags, &showProgress),
			importDBSNPCommand(sharedFlags, datasetFlags),
			importSVCommand(sharedFlags, datasetFlags),
			importTextCommand(sharedFlags, datasetFlags),
			importGFFCommand(sharedFlags, datasetFlags),
			importGeneCommand(sharedFlags, datasetFlags),
			mergeFrequencyCommand(sharedFlags),
			queryCommand(sharedFlags),
			serveCommand(sharedFlags),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if logger != nil {
			logger.Error("Error running app", "error", err)
		}
		os.Exit(1)
	}
}

// openDatasetForImport creates (or reopens) path-out, ensures the meta and
// data buckets exist, and stamps the db-name/genome-release/db-version/
// annonars-version meta keys every importer and the query engine rely on.
func openDatasetForImport(c *cli.Context, dbName string) (*store.DB, error) {
	path := c.String("path-out")

	db, err := store.Open(path, false)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.CreateColumnFamilies(store.MetaBucket, store.DataBucket); err != nil {
		db.Close()
		return nil, err
	}

	for key, value := range map[string]string{
		store.MetaDBName:          dbName,
		store.MetaGenomeRelease:   c.String("genome-release"),
		store.MetaDBVersion:       c.String("db-version"),
		store.MetaAnnonarsVersion: buildinfo.Version,
	} {
		if err := db.PutMeta(key, value); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// finishImport closes db, and -- if the import itself succeeded -- runs the
// bulk compaction and writes the spec.yaml sidecar every dataset directory
// carries. importErr is the import function's own
// result; a close failure is only surfaced when the import otherwise
// succeeded, so the caller's real error always wins.
func finishImport(db *store.DB, c *cli.Context, dbName, title, description string, sources []string, importErr error) error {
	path := db.Path()

	if closeErr := db.Close(); importErr == nil {
		importErr = closeErr
	}
	if importErr != nil {
		return importErr
	}

	if err := store.Compact(path); err != nil {
		return err
	}

	dbVersion := c.String("db-version")

	return store.WriteSpecFile(path, store.SpecFile{
		Identifier:    dbName,
		Title:         title,
		Creator:       "annonars",
		Format:        "application/x-bbolt",
		Date:          time.Now().UTC().Format("2006-01-02"),
		Version:       dbVersion,
		GenomeRelease: c.String("genome-release"),
		Description:   description,
		Source:        sources,
		CreatedFrom:   []store.CreatedFrom{{Name: dbName, Version: dbVersion}},
	})
}

func importVCFCommand(shared, dataset []cli.Flag, showProgress *bool) *cli.Command {
	flags := append(append([]cli.Flag{
		&cli.StringFlag{
			Name:     "cohort",
			Usage:    "Which dataset family this VCF feeds: gnomad-exomes|gnomad-genomes|gnomad-mtdna|helix-mtdna",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Window worker pool size when a .tbi sidecar is present",
			Value: 4,
		},
		&cli.Int64Flag{
			Name:  "tbi-window-size",
			Usage: "Genome window length (bp) for window-parallel import when a .tbi sidecar is present",
			Value: vcfimport.DefaultWindowSize,
		},
		&cli.StringFlag{
			Name:  "gnomad-version",
			Usage: "gnomAD release this VCF comes from (e.g. 4.1); recorded in meta:gnomad-version and used to pick the decode schema at query time",
		},
		&cli.BoolFlag{Name: "global-cohort-pops", Usage: "Extract per-population AC/AN from the global cohort"},
		&cli.BoolFlag{Name: "all-cohorts", Usage: "Extract per-population AC/AN from every declared cohort"},
		&cli.BoolFlag{Name: "vep", Usage: "Retain the raw VEP consequence annotation (INFO/vep)"},
		&cli.BoolFlag{Name: "var-info", Usage: "Extract variant classification details (variant_type, allele_type, n_alt_alleles, ...)"},
		&cli.BoolFlag{Name: "effect-info", Usage: "Extract predicted-effect scores (REVEL, CADD, SpliceAI, PrimateAI)"},
		&cli.BoolFlag{Name: "quality", Usage: "Extract allele-specific VQSR/quality metrics"},
		&cli.BoolFlag{Name: "age-hists", Usage: "Extract het/hom age-of-carrier histograms"},
		&cli.BoolFlag{Name: "depth-details", Usage: "Extract per-variant depth-of-coverage histograms"},
	}, dataset...), shared...)

	return &cli.Command{
		Name:      "import-vcf",
		Usage:     "Import a small-variant frequency VCF (gnomAD exomes/genomes/mtDNA, Helix mtDNA)",
		UsageText: "annonars import-vcf --cohort gnomad-exomes --path-out <dir> <vcf path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing required vcf path argument")
			}

			cohortName := c.String("cohort")
			var cohort vcfimport.Cohort
			switch cohortName {
			case "gnomad-exomes":
				cohort = vcfimport.CohortExomes
			case "gnomad-genomes", "gnomad-mtdna", "helix-mtdna":
				cohort = vcfimport.CohortGenomes
			default:
				return fmt.Errorf("unknown cohort %q", cohortName)
			}

			gnomadVersion := c.String("gnomad-version")
			if gnomadVersion != "" {
				if _, err := records.ParseGnomadVersion(gnomadVersion); err != nil {
					return err
				}
			}

			db, err := openDatasetForImport(c, cohortName)
			if err != nil {
				return err
			}

			if gnomadVersion != "" {
				if err := db.PutMeta(store.MetaGnomadVersion, gnomadVersion); err != nil {
					db.Close()
					return err
				}
			}

			opts := vcfimport.Options{
				VEP:              c.Bool("vep"),
				VarInfo:          c.Bool("var-info"),
				EffectInfo:       c.Bool("effect-info"),
				GlobalCohortPops: c.Bool("global-cohort-pops"),
				AllCohorts:       c.Bool("all-cohorts"),
				Quality:          c.Bool("quality"),
				AgeHists:         c.Bool("age-hists"),
				DepthDetails:     c.Bool("depth-details"),
			}

			path := c.Args().First()
			logger.Info("Importing VCF", "path", path, "cohort", cohortName)

			importErr := vcfimport.Import(c.Context, logger, db, path, cohort, opts, c.Int("workers"), c.Int64("tbi-window-size"), *showProgress)
			return finishImport(db, c, cohortName, "Small-variant frequencies", "Per-variant allele counts and frequencies", []string{path}, importErr)
		},
	}
}

func importDBSNPCommand(shared, dataset []cli.Flag) *cli.Command {
	flags := append(append([]cli.Flag{
		&cli.BoolFlag{Name: "common-only", Usage: "Only import variants dbSNP marks COMMON", Value: true},
	}, dataset...), shared...)

	return &cli.Command{
		Name:      "import-dbsnp",
		Usage:     "Import dbSNP rsID assignments",
		UsageText: "annonars import-dbsnp --path-out <dir> <dbsnp vcf path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing required dbsnp vcf path argument")
			}

			db, err := openDatasetForImport(c, "dbsnp")
			if err != nil {
				return err
			}

			path := c.Args().First()
			logger.Info("Importing dbSNP", "path", path)

			importErr := dbsnpimport.Import(logger, db, path, dbsnpimport.Options{CommonOnly: c.Bool("common-only")})
			return finishImport(db, c, "dbsnp", "dbSNP rsID assignments", "Per-variant dbSNP rsID and variant class", []string{path}, importErr)
		},
	}
}

func importSVCommand(shared, dataset []cli.Flag) *cli.Command {
	flags := append(append([]cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Usage:    "Which SV source this file is: clinvar-sv|gnomad-sv",
			Required: true,
		},
		&cli.Int64Flag{Name: "min-sv-size", Usage: "Minimum structural-variant size to import (clinvar-sv only)", Value: 50},
		&cli.StringFlag{Name: "cohort", Usage: "Carrier-count cohort label this file contributes (gnomad-sv only)"},
	}, dataset...), shared...)

	return &cli.Command{
		Name:      "import-sv",
		Usage:     "Import a structural-variant catalog (ClinVar SV JSONL, gnomAD-SV VCF)",
		UsageText: "annonars import-sv --source clinvar-sv --path-out <dir> <path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing required input path argument")
			}
			path := c.Args().First()

			switch source := c.String("source"); source {
			case "clinvar-sv":
				db, err := openDatasetForImport(c, "clinvar-sv")
				if err != nil {
					return err
				}

				logger.Info("Importing ClinVar SV", "path", path)
				importErr := svimport.ImportClinVarSV(logger, db, path, svimport.ClinVarSVOptions{MinVarSize: c.Int64("min-sv-size")})
				return finishImport(db, c, "clinvar-sv", "ClinVar structural variants", "ClinVar structural-variant records and assertions, keyed by VCV", []string{path}, importErr)
			case "gnomad-sv":
				cohort := c.String("cohort")
				if cohort == "" {
					return fmt.Errorf("gnomad-sv import requires --cohort")
				}

				db, err := openDatasetForImport(c, "gene-sv")
				if err != nil {
					return err
				}

				logger.Info("Importing gnomAD-SV", "path", path, "cohort", cohort)
				importErr := svimport.ImportGnomadSV(logger, db, path, cohort)
				return finishImport(db, c, "gene-sv", "Gene SV carrier counts", "Per-gene structural-variant carrier counts by sex and population", []string{path}, importErr)
			default:
				return fmt.Errorf("unknown sv source %q", source)
			}
		},
	}
}

func importTextCommand(shared, dataset []cli.Flag) *cli.Command {
	flags := append(append([]cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Usage:    "Which line-oriented source this file is: clinvar-minimal|gene-clinvar|conservation",
			Required: true,
		},
	}, dataset...), shared...)

	return &cli.Command{
		Name:      "import-text",
		Usage:     "Import a JSONL/TSV source (ClinVar minimal, per-gene ClinVar, UCSC conservation)",
		UsageText: "annonars import-text --source clinvar-minimal --path-out <dir> <path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing required input path argument")
			}
			path := c.Args().First()
			release := c.String("genome-release")

			switch source := c.String("source"); source {
			case "clinvar-minimal":
				db, err := openDatasetForImport(c, "clinvar-minimal")
				if err != nil {
					return err
				}

				logger.Info("Importing ClinVar minimal", "path", path)
				importErr := textimport.ImportClinVarMinimal(logger, db, path, release)
				return finishImport(db, c, "clinvar-minimal", "ClinVar minimal", "ClinVar variant/assertion records", []string{path}, importErr)
			case "gene-clinvar":
				db, err := openDatasetForImport(c, "gene-clinvar")
				if err != nil {
					return err
				}

				logger.Info("Importing per-gene ClinVar", "path", path)
				importErr := textimport.ImportGeneClinVar(logger, db, path, release)
				return finishImport(db, c, "gene-clinvar", "Per-gene ClinVar aggregate", "Per-gene impact/frequency counts and release variant lists", []string{path}, importErr)
			case "conservation":
				db, err := openDatasetForImport(c, "ucsc-conservation")
				if err != nil {
					return err
				}

				logger.Info("Importing UCSC conservation", "path", path)
				importErr := textimport.ImportConservation(logger, db, path)
				return finishImport(db, c, "ucsc-conservation", "UCSC conservation", "Per-position per-transcript conservation scores", []string{path}, importErr)
			default:
				return fmt.Errorf("unknown text source %q", source)
			}
		},
	}
}

func importGFFCommand(shared, dataset []cli.Flag) *cli.Command {
	flags := append(append([]cli.Flag{
		&cli.StringFlag{
			Name:  "category",
			Usage: "Region category recorded on every feature in this file (e.g. regulatory, gene, ncRNA)",
		},
	}, dataset...), shared...)

	return &cli.Command{
		Name:      "import-gff",
		Usage:     "Import a RefSeq functional-region GFF3 file",
		UsageText: "annonars import-gff --category regulatory --path-out <dir> <gff3 path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing required gff3 path argument")
			}

			db, err := openDatasetForImport(c, "functional-regions")
			if err != nil {
				return err
			}

			path := c.Args().First()
			logger.Info("Importing functional regions", "path", path)

			importErr := gffimport.Import(logger, db, path, gffimport.Options{Category: c.String("category")})
			return finishImport(db, c, "functional-regions", "RefSeq functional regions", "Regulatory/functional genomic region annotations", []string{path}, importErr)
		},
	}
}

// geneSourceImporters maps the --source flag of import-gene to the
// geneimport package function it drives. Every one of the ~12 optional
// gene blocks plus the required HGNC core block is reachable this way.
var geneSourceImporters = map[string]func(*slog.Logger, *store.DB, string) error{
	"hgnc":               geneimport.ImportHGNCCore,
	"acmg-sf":            geneimport.ImportACMGSF,
	"clingen":            geneimport.ImportClinGen,
	"dbnsfp":             geneimport.ImportDBNSFP,
	"gnomad-constraints": geneimport.ImportGnomadConstraints,
	"ncbi-summary":       geneimport.ImportNCBISummary,
	"omim":               geneimport.ImportOMIM,
	"orpha":              geneimport.ImportORPHA,
	"panelapp":           geneimport.ImportPanelApp,
	"rcnv":               geneimport.ImportRCNV,
	"shet":               geneimport.ImportSHet,
	"gtex":               geneimport.ImportGTEx,
	"domino":             geneimport.ImportDomino,
	"decipher-hi":        geneimport.ImportDecipherHI,
}

func importGeneCommand(shared, dataset []cli.Flag) *cli.Command {
	flags := append(append([]cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Usage:    "Which per-gene source this file is (see annonars import-gene --help)",
			Required: true,
		},
	}, dataset...), shared...)

	return &cli.Command{
		Name:      "import-gene",
		Usage:     "Merge one per-gene source file into the gene aggregate dataset",
		UsageText: "annonars import-gene --source hgnc --path-out <dir> <path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing required input path argument")
			}

			source := c.String("source")
			fn, ok := geneSourceImporters[source]
			if !ok {
				names := make([]string, 0, len(geneSourceImporters))
				for name := range geneSourceImporters {
					names = append(names, name)
				}
				return fmt.Errorf("unknown gene source %q (want one of %s)", source, strings.Join(names, ", "))
			}

			db, err := openDatasetForImport(c, "genes")
			if err != nil {
				return err
			}

			path := c.Args().First()
			logger.Info("Importing gene source", "source", source, "path", path)

			importErr := fn(logger, db, path)
			return finishImport(db, c, "genes", "Gene aggregate", fmt.Sprintf("Per-gene aggregate record, merged from %s", source), []string{path}, importErr)
		},
	}
}

func mergeFrequencyCommand(shared []cli.Flag) *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringSliceFlag{
			Name:     "in",
			Usage:    "Per-cohort frequency store directory to merge from (repeatable)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "path-out",
			Usage:    "Path of the merged frequency store to create",
			Required: true,
		},
		&cli.StringFlag{Name: "genome-release", Value: "grch38"},
		&cli.StringFlag{Name: "db-version", Value: "unknown"},
	}, shared...)

	return &cli.Command{
		Name:  "merge-frequency",
		Usage: "Stream-merge per-cohort frequency stores (gnomAD exomes + genomes) by VarKey",
		Flags: flags,
		Action: func(c *cli.Context) error {
			inPaths := c.StringSlice("in")
			if len(inPaths) == 0 {
				return fmt.Errorf("at least one --in store is required")
			}

			sources := make([]*store.DB, 0, len(inPaths))
			for _, p := range inPaths {
				db, err := store.Open(p, true)
				if err != nil {
					return err
				}
				defer db.Close()
				sources = append(sources, db)
			}

			out, err := openDatasetForImport(c, "gnomad-genomes")
			if err != nil {
				return err
			}

			logger.Info("Merging frequency stores", "sources", inPaths, "out", c.String("path-out"))

			importErr := freqmerge.Merge(sources, out)
			return finishImport(out, c, "gnomad-genomes", "Merged frequency store", "Frequency records stream-merged across cohort stores by VarKey", inPaths, importErr)
		},
	}
}

func queryCommand(shared []cli.Flag) *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "path-in", Required: true, Usage: "Path to the dataset store to query"},
		&cli.StringFlag{Name: "variant", Usage: "CHROM:POS:REF:ALT"},
		&cli.StringFlag{Name: "position", Usage: "CHROM:POS"},
		&cli.StringFlag{Name: "range", Usage: "CHROM:START:END"},
		&cli.BoolFlag{Name: "all", Usage: "Dump every record in the dataset"},
		&cli.StringFlag{Name: "out-file", Value: "-", Usage: "Output path, - for stdout"},
		&cli.StringFlag{Name: "out-format", Value: "jsonl", Usage: "Output format (jsonl)"},
	}, shared...)

	return &cli.Command{
		Name:      "query",
		Usage:     "Run a variant, range or full-dump query against one dataset store",
		UsageText: "annonars query --path-in <dir> --variant 1:95227055:A:G",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if format := c.String("out-format"); format != "jsonl" {
				return fmt.Errorf("unsupported --out-format %q (want jsonl)", format)
			}

			selectors := 0
			for _, set := range []bool{c.String("variant") != "", c.String("position") != "", c.String("range") != "", c.Bool("all")} {
				if set {
					selectors++
				}
			}
			if selectors != 1 {
				return fmt.Errorf("exactly one of --variant, --position, --range or --all is required")
			}

			ds, err := query.Open(c.String("path-in"))
			if err != nil {
				return fmt.Errorf("could not open dataset: %w", err)
			}
			defer ds.Close()

			out := os.Stdout
			if path := c.String("out-file"); path != "-" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			enc := json.NewEncoder(out)

			encodeAll := func(recs []any) error {
				for _, rec := range recs {
					if err := enc.Encode(rec); err != nil {
						return err
					}
				}
				return nil
			}

			switch {
			case c.String("variant") != "":
				chrom, pos, ref, alt, err := parseVariantSelector(c.String("variant"))
				if err != nil {
					return err
				}
				rec, err := ds.VariantQuery(chrom, pos, ref, alt)
				if err != nil {
					return err
				}
				return enc.Encode(rec)
			case c.String("position") != "":
				chrom, pos, err := parsePositionSelector(c.String("position"))
				if err != nil {
					return err
				}
				recs, err := ds.PositionQuery(chrom, pos)
				if err != nil {
					return err
				}
				return encodeAll(recs)
			case c.String("range") != "":
				chrom, start, stop, err := parseRangeSelector(c.String("range"))
				if err != nil {
					return err
				}
				recs, err := ds.RangeQuery(chrom, start, stop)
				if err != nil {
					return err
				}
				return encodeAll(recs)
			default:
				return ds.All(func(rec any) error { return enc.Encode(rec) })
			}
		},
	}
}

func parseVariantSelector(s string) (chrom string, pos int64, ref, alt string, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return "", 0, "", "", fmt.Errorf("invalid --variant selector %q, want CHROM:POS:REF:ALT", s)
	}
	pos, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", "", fmt.Errorf("invalid position in --variant selector %q: %w", s, err)
	}
	return parts[0], pos, parts[2], parts[3], nil
}

func parsePositionSelector(s string) (chrom string, pos int64, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid --position selector %q, want CHROM:POS", s)
	}
	pos, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid position in --position selector %q: %w", s, err)
	}
	return parts[0], pos, nil
}

func parseRangeSelector(s string) (chrom string, start, stop int64, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("invalid --range selector %q, want CHROM:START:END", s)
	}
	start, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid start in --range selector %q: %w", s, err)
	}
	stop, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid end in --range selector %q: %w", s, err)
	}
	return parts[0], start, stop, nil
}

func serveCommand(shared []cli.Flag) *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringSliceFlag{
			Name:     "release",
			Usage:    "release=dir, e.g. grch38=/data/grch38 (repeatable, one per genome release served)",
			Required: true,
		},
		&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
	}, shared...)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve the HTTP annotation API over one or more opened releases",
		UsageText: "annonars serve --release grch38=/data/grch38 --release grch37=/data/grch37",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			releases, datasets, err := openReleases(c.StringSlice("release"))
			if err != nil {
				return err
			}
			defer func() {
				for _, ds := range datasets {
					ds.Close()
				}
			}()

			srv := httpapi.NewServer(releases)

			logger.Info("Serving annotation API", "addr", c.String("addr"))
			return srv.ListenAndServe(c.Context, c.String("addr"))
		},
	}
}

// releaseDatasetNames enumerates every dataset file expected under a
// release directory, named after its meta:db-name.
var releaseDatasetNames = []string{
	"gnomad-exomes", "gnomad-genomes", "gnomad-mtdna", "helix-mtdna",
	"clinvar-minimal", "clinvar-sv", "dbsnp", "ucsc-conservation",
	"genes", "gene-clinvar", "gene-sv", "functional-regions",
}

// openReleases opens every "release=dir" pair's dataset files (any of
// releaseDatasetNames found under dir, named "<name>.annonars"), and
// builds the SV overlay from the clinvar-sv dataset and the gene index
// from the genes dataset, each only when that dataset is present.
func openReleases(specs []string) (map[string]*httpapi.Release, []*query.Dataset, error) {
	releases := make(map[string]*httpapi.Release, len(specs))
	var allDatasets []*query.Dataset

	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return nil, allDatasets, fmt.Errorf("invalid --release %q, want release=dir", spec)
		}
		releaseName, dir := parts[0], parts[1]

		rel := &httpapi.Release{Datasets: make(map[string]*query.Dataset), SourceInfo: make(map[string]string)}

		var svDataset, geneDataset *query.Dataset

		for _, name := range releaseDatasetNames {
			path := dir + "/" + name + ".annonars"
			if _, statErr := os.Stat(path); statErr != nil {
				continue
			}

			ds, err := query.Open(path)
			if err != nil {
				return nil, allDatasets, fmt.Errorf("opening %s: %w", path, err)
			}
			allDatasets = append(allDatasets, ds)

			rel.Datasets[name] = ds
			rel.SourceInfo[name] = lineageString(path, ds)

			switch name {
			case "clinvar-sv":
				svDataset = ds
			case "genes":
				geneDataset = ds
			}
		}

		if svDataset != nil {
			overlay, err := interval.Build(svDataset)
			if err != nil {
				return nil, allDatasets, fmt.Errorf("building sv overlay for %s: %w", releaseName, err)
			}
			rel.SVOverlay = overlay
		}

		if geneDataset != nil {
			idx, err := genes.Build(geneDataset)
			if err != nil {
				return nil, allDatasets, fmt.Errorf("building gene index for %s: %w", releaseName, err)
			}
			rel.GeneIndex = idx
		}

		releases[releaseName] = rel
	}

	return releases, allDatasets, nil
}

// lineageString resolves the x-created-from lineage string /api/v1/versions
// reports for one dataset file: the spec.yaml sidecar's own x-created-from
// entries when one was written at import time, falling back to the
// meta:db-name/meta:db-version pair every dataset carries regardless.
func lineageString(path string, ds *query.Dataset) string {
	if spec, err := store.ReadSpecFile(path); err == nil && spec != nil && len(spec.CreatedFrom) > 0 {
		parts := make([]string, 0, len(spec.CreatedFrom))
		for _, cf := range spec.CreatedFrom {
			parts = append(parts, cf.Name+"@"+cf.Version)
		}
		return strings.Join(parts, ", ")
	}

	if info, err := ds.DBInfo(); err == nil {
		return info.Name + "@" + info.DBVersion
	}

	return ""
}

type logLevelFlag slog.Level

func fromLogLevel(l slog.Level) *logLevelFlag {
	f := logLevelFlag(l)
	return &f
}

func (f *logLevelFlag) Set(value string) error {
	return (*slog.Level)(f).UnmarshalText([]byte(value))
}

func (f *logLevelFlag) String() string {
	return (*slog.Level)(f).String()
}
