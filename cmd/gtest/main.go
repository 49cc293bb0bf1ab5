// gtest compiles every TIR test file in-process and compares the result
// against a golden .json stored next to it. Markdown files are run as
// case collections instead.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/tirc/pkg/casefile"
	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/compiler"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/util"
)

type Function struct {
	Name       string   `json:"name"`
	Visibility string   `json:"visibility"`
	Addr       uint64   `json:"addr"`
	Words      []string `json:"words"`
	Asm        []string `json:"asm"`
}

// Golden is what one source file compiled to.
type Golden struct {
	Hash        string            `json:"hash"`
	Args        []string          `json:"args,omitempty"`
	Error       string            `json:"error,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
	Addresses   map[string]uint64 `json:"addresses,omitempty"`
	Functions   []Function        `json:"functions,omitempty"`
}

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
	Result   *Golden       `json:"result,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compilerArgs   = flag.String("args", "", "Feature and warning flags to compile with (space-separated, e.g. '-Fwrap-imm -Wno-all').")
	generateGolden = flag.String("generate-golden", "", "Generate a golden .json file for a given source file.")
	update         = flag.Bool("update", false, "Rewrite the golden file of every tested .tir file.")
	testFiles      = flag.String("test-files", "testdata/*.tir testdata/*.md", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *generateGolden != "" {
		if err := writeGolden(*generateGolden); err != nil {
			log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, getJSONPath(*generateGolden))
		return
	}

	handleRunTestSuite()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

func hashBytes(b []byte) string { return fmt.Sprintf("%x", xxhash.Sum64(b)) }

// compileFile runs the whole pipeline on src with the -args flags applied.
func compileFile(name string, src []byte) (*Golden, error) {
	args := strings.Fields(*compilerArgs)
	cfg := config.NewConfig()
	for _, a := range args {
		if err := cfg.ApplyFlag(a); err != nil {
			return nil, err
		}
	}

	var diags bytes.Buffer
	rep := util.NewReporter(&diags, cfg)
	syms, unit, err := compiler.Assemble(string(src), compiler.Options{Config: cfg, Reporter: rep, Filename: name})

	g := &Golden{Hash: hashBytes(src), Args: args}
	if err != nil {
		g.Error = err.Error()
		compiler.Report(rep, err)
	}
	for _, d := range rep.Diagnostics() {
		g.Diagnostics = append(g.Diagnostics, d.String())
	}
	if unit != nil {
		g.Addresses = unit.Addresses
	}
	for _, s := range syms {
		fn := Function{Name: s.Name, Visibility: s.Visibility.String(), Addr: s.Addr}
		for _, w := range s.Words() {
			fn.Words = append(fn.Words, w.String())
		}
		fn.Asm = casefile.Asm([]codegen.Symbol{s})[1:]
		g.Functions = append(g.Functions, fn)
	}
	return g, nil
}

func writeGolden(sourceFile string) error {
	src, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", sourceFile, err)
	}
	g, err := compileFile(sourceFile, src)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data to JSON: %w", err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", *jsonDir, err)
		}
	}
	return os.WriteFile(getJSONPath(sourceFile), data, 0644)
}

func handleRunTestSuite() {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	// Every file gets its own pipeline; nothing is shared between workers.
	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				start := time.Now()
				res := testFile(file)
				res.Duration = time.Since(start)
				resultsChan <- res
			}
		}()
	}

	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		src, err := os.ReadFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		fileHash := hashBytes(src)
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(allResults)
	if hasFailures(writeJSONReport(allResults)) {
		os.Exit(1)
	}
}

func testFile(file string) *FileTestResult {
	if strings.HasSuffix(file, ".md") {
		return testCaseFile(file)
	}
	if *update {
		if err := writeGolden(file); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file updated"}
	}

	goldenData, err := os.ReadFile(getJSONPath(file))
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file: %v", err)}
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	got, err := compileFile(file, src)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}

	res := &FileTestResult{File: file, Status: "PASS", Result: got}
	if diff := cmp.Diff(&golden, got, cmpopts.IgnoreFields(Golden{}, "Hash"), cmpopts.EquateEmpty()); diff != "" {
		res.Status, res.Message, res.Diff = "FAIL", "Output differs from golden file", diff
	}
	if golden.Hash != got.Hash {
		res.Message = strings.TrimSpace(res.Message + " (source changed since the golden file was generated)")
	}
	return res
}

func testCaseFile(file string) *FileTestResult {
	data, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	cases, err := casefile.Extract(data)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	var diffs strings.Builder
	failed := 0
	for _, c := range cases {
		fails, err := casefile.Run(c)
		if err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		if len(fails) > 0 {
			failed++
			fmt.Fprintf(&diffs, "Test '%s':\n", c.Name)
			for _, f := range fails {
				fmt.Fprintf(&diffs, "  %s\n", f)
			}
		}
	}
	if failed > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: fmt.Sprintf("%d of %d cases failed", failed, len(cases)), Diff: diffs.String()}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: fmt.Sprintf("%d cases", len(cases))}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		switch r.Status {
		case "PASS":
			passed++
			if *verbose {
				fmt.Printf("%s[PASS]%s %s %s%s%s %s\n", cGreen, cNone, r.File, cCyan, formatDuration(r.Duration), cNone, r.Message)
			}
		case "FAIL":
			failed++
			fmt.Printf("%s[FAIL]%s %s: %s\n", cRed, cNone, r.File, r.Message)
			if r.Diff != "" {
				fmt.Println(formatDiff(r.Diff))
			}
		case "SKIP":
			skipped++
			if *verbose {
				fmt.Printf("%s[SKIP]%s %s: %s\n", cYellow, cNone, r.File, r.Message)
			}
		case "ERROR":
			errored++
			fmt.Printf("%s[ERROR]%s %s: %s\n", cRed, cNone, r.File, r.Message)
		}
	}
	fmt.Printf("\n%s%d passed%s, %s%d failed%s, %d skipped, %d errors (%d files)\n",
		cBold+cGreen, passed, cNone, cBold+cRed, failed, cNone, skipped, errored, len(results))
}

func formatDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			sb.WriteString("    " + cRed + line + cNone + "\n")
		case strings.HasPrefix(trimmed, "+"):
			sb.WriteString("    " + cGreen + line + cNone + "\n")
		default:
			sb.WriteString("    " + line + "\n")
		}
	}
	return sb.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults)
	for _, r := range results {
		resultsMap[r.File] = r
	}
	data, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[WARN]%s Could not marshal test report: %v\n", cYellow, cNone, err)
		return resultsMap
	}
	outputFile := *outputJSON
	if *jsonDir != "" {
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		log.Printf("%s[WARN]%s Could not write test report %s: %v\n", cYellow, cNone, outputFile, err)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
