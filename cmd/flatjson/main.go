package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/dgallion1/flatjson/internal/artifact"
	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/decode"
	"github.com/dgallion1/flatjson/internal/flatten"
	"github.com/dgallion1/flatjson/internal/reconstruct"
)

const defaultOutputDir = "output"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: flatjson <command> [options]\n\n")
	fmt.Fprintf(w, "flatjson splits a nested JSON document into flat collections of records,\n")
	fmt.Fprintf(w, "one JSON file per collection, and rebuilds the document from those files.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  flatten       Flatten a JSON or YAML document into collection files\n")
	fmt.Fprintf(w, "  reconstruct   Rebuild a document from a directory of collection files\n\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  flatjson flatten -f data.json                # writes ./output/<collection>.json\n")
	fmt.Fprintf(w, "  flatjson flatten -f data.yaml -o out --zip   # also bundles out/flattened.zip\n")
	fmt.Fprintf(w, "  flatjson reconstruct --dir output            # writes output/<root>_reconstructed.json\n")
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "flatten":
		return runFlatten(args[1:], stdout, stderr)
	case "reconstruct":
		return runReconstruct(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func newFlagSet(name, synopsis string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: flatjson %s %s\n\nOptions:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runFlatten(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("flatten", "-f FILE [options]", stderr)
	file := fs.StringP("file", "f", "", "JSON or YAML document to flatten (required)")
	outDir := fs.StringP("output", "o", defaultOutputDir, "Directory to write collection files into")
	zip := fs.Bool("zip", false, "Also write "+artifact.ArchiveName+" with every collection file")
	report := fs.Bool("report", false, "Also write "+artifact.ReportName+" with one table per collection")
	strict := fs.Bool("strict", false, "Fail when two document paths map to the same collection name")
	verbose := fs.BoolP("verbose", "v", false, "Log debug output")
	if err := fs.Parse(args); err != nil {
		return exitForParse(err)
	}
	if *file == "" {
		fmt.Fprintln(stderr, "flatten: -f FILE is required")
		fs.Usage()
		return 2
	}
	log := newLogger(stderr, *verbose)

	set, err := flattenFile(*file, *strict, log)
	if err != nil {
		log.Error("flatten failed", "file", *file, "error", err)
		return 1
	}

	files, err := artifact.Encode(set)
	if err != nil {
		log.Error("encode collections", "error", err)
		return 1
	}
	written := files
	if *zip {
		archive, err := artifact.Zip(files)
		if err != nil {
			log.Error("build archive", "error", err)
			return 1
		}
		written = append(written, archive)
	}
	if *report {
		doc, err := artifact.Report(set)
		if err != nil {
			log.Error("build report", "error", err)
			return 1
		}
		written = append(written, doc)
	}
	if err := artifact.WriteDir(*outDir, written); err != nil {
		log.Error("write output", "dir", *outDir, "error", err)
		return 1
	}

	printCollections(stdout, *outDir, set, written)
	return 0
}

func flattenFile(path string, strict bool, log *slog.Logger) (*collection.Set, error) {
	dec, err := decode.ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	doc, err := dec.Decode(f)
	if err != nil {
		return nil, err
	}
	set, err := flatten.Document(doc, strict)
	if err != nil {
		return nil, err
	}
	for _, c := range set.Collisions() {
		log.Warn("collection name collision", "collision", c.String())
	}
	stats := flatten.Stats(set)
	log.Debug("flattened", "collections", stats.Collections, "records", stats.Records)
	return set, nil
}

func runReconstruct(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("reconstruct", "--dir DIR [options]", stderr)
	dir := fs.StringP("dir", "d", "", "Directory containing collection files (required)")
	outDir := fs.StringP("output", "o", defaultOutputDir, "Directory to write the reconstructed document into")
	verbose := fs.BoolP("verbose", "v", false, "Log each merge step")
	if err := fs.Parse(args); err != nil {
		return exitForParse(err)
	}
	if *dir == "" {
		fmt.Fprintln(stderr, "reconstruct: --dir DIR is required")
		fs.Usage()
		return 2
	}
	log := newLogger(stderr, *verbose)

	set, err := artifact.LoadDir(*dir)
	if err != nil {
		log.Error("load collections", "dir", *dir, "error", err)
		return 1
	}
	doc, err := reconstruct.Reconstruct(set, reconstruct.WithLogger(log))
	if err != nil {
		log.Error("reconstruct failed", "dir", *dir, "error", err)
		return 1
	}
	data, err := artifact.EncodeDocument(doc)
	if err != nil {
		log.Error("encode document", "error", err)
		return 1
	}
	out := artifact.File{Name: artifact.ReconstructedName(doc), ContentType: artifact.ContentTypeJSON, Data: data}
	if err := artifact.WriteDir(*outDir, []artifact.File{out}); err != nil {
		log.Error("write output", "dir", *outDir, "error", err)
		return 1
	}

	styles := newStyles(stdout)
	fmt.Fprintln(stdout, styles.title.Render(fmt.Sprintf("Reconstructed %d collections", set.Len())))
	fmt.Fprintln(stdout, "  "+styles.path.Render(filepath.Join(*outDir, out.Name)))
	return 0
}

func exitForParse(err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	return 2
}

type styles struct {
	title lipgloss.Style
	name  lipgloss.Style
	count lipgloss.Style
	path  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		name:  r.NewStyle().Foreground(lipgloss.Color("255")),
		count: r.NewStyle().Foreground(lipgloss.Color("241")),
		path:  r.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
	}
}

// printCollections writes the run summary: one line per collection with its
// record count, then the extra bundles.
func printCollections(w io.Writer, dir string, set *collection.Set, files []artifact.File) {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("Flattened into %d collections", set.Len())))

	width := 0
	for _, name := range set.Names() {
		width = max(width, lipgloss.Width(artifact.FileName(name)))
	}
	nameCol := st.name.Width(width + 2)
	for _, name := range set.Names() {
		n := len(set.Records(name))
		fmt.Fprintf(w, "  %s%s\n", nameCol.Render(artifact.FileName(name)), st.count.Render(fmt.Sprintf("%d records", n)))
	}
	for _, f := range files[set.Len():] {
		fmt.Fprintf(w, "  %s\n", st.name.Render(f.Name))
	}
	fmt.Fprintln(w, "  "+st.path.Render(dir))
}
