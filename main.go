package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/config"
	"heapstore/pkg/execution/aggregation"
	"heapstore/pkg/execution/filter"
	"heapstore/pkg/iterator"
	"heapstore/pkg/logging"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/tuple"
	"heapstore/pkg/ui"
)

type Configuration struct {
	File       string
	Schema     string
	Names      string
	ConfigPath string
	Insert     string
	Aggregate  string
	Where      string
	Records    bool
	Limit      int
	BarWidth   int
}

func main() {
	opts := parseArguments()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError(err))
		os.Exit(1)
	}
}

// parseArguments processes command-line flags
func parseArguments() Configuration {
	var opts Configuration

	flag.StringVar(&opts.File, "file", "", "Heap file to open (created if missing)")
	flag.StringVar(&opts.Schema, "schema", "", "Comma-separated field types, e.g. int,string")
	flag.StringVar(&opts.Names, "names", "", "Comma-separated field names (optional)")
	flag.StringVar(&opts.ConfigPath, "config", "", "INI or TOML configuration file")
	flag.StringVar(&opts.Insert, "insert", "", "Rows to insert before inspecting, e.g. \"1,ada;2,grace\"")
	flag.StringVar(&opts.Aggregate, "agg", "", "Aggregate to compute as op:field[:groupField], e.g. sum:0:1")
	flag.StringVar(&opts.Where, "where", "", "Restrict records and aggregates to field op value, e.g. \"1>=30\"")
	flag.BoolVar(&opts.Records, "records", false, "Print every record")
	flag.IntVar(&opts.Limit, "limit", 0, "Print at most this many records (0 prints all)")
	flag.IntVar(&opts.BarWidth, "width", 40, "Width of the occupancy bars")

	flag.Parse()

	return opts
}

func run(opts Configuration) error {
	if opts.File == "" || opts.Schema == "" {
		return errors.New("both -file and -schema are required")
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return err
		}
	}
	if err := logging.Init(cfg.Log); err != nil {
		return errors.Wrap(err, "initialize logging")
	}
	defer logging.Close()

	td, err := parseSchema(opts.Schema, opts.Names)
	if err != nil {
		return err
	}

	path := opts.File
	if !filepath.IsAbs(path) && cfg.DataDir != "" {
		path = filepath.Join(cfg.DataDir, path)
	}
	if err := primitives.Filepath(path).Dir().MkdirAll(0o750); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}

	tables := memory.NewTableManager()
	store, err := memory.NewPageStore(cfg, tables)
	if err != nil {
		return err
	}
	defer store.Close()

	hf, err := heap.NewHeapFile(primitives.Filepath(path), td, store)
	if err != nil {
		return err
	}
	if err := tables.AddTable(filepath.Base(path), hf); err != nil {
		_ = hf.Close()
		return err
	}

	if opts.Insert != "" {
		if err := insertRows(store, hf, opts.Insert); err != nil {
			return err
		}
	}

	tid := transaction.NewTransactionID()
	if err := inspect(store, hf, tid, opts); err != nil {
		_ = store.AbortTransaction(tid)
		return err
	}
	return store.CommitTransaction(tid)
}

// insertRows inserts every row of list in one transaction and commits it.
func insertRows(store *memory.PageStore, hf *heap.HeapFile, list string) error {
	rows, err := parseRows(hf.GetTupleDesc(), list)
	if err != nil {
		return err
	}

	tid := transaction.NewTransactionID()
	for _, row := range rows {
		if err := store.InsertTuple(tid, hf.GetID(), row); err != nil {
			_ = store.AbortTransaction(tid)
			return err
		}
	}
	return store.CommitTransaction(tid)
}

func inspect(store *memory.PageStore, hf *heap.HeapFile, tid *transaction.TransactionID, opts Configuration) error {
	td := hf.GetTupleDesc()
	numPages, err := hf.NumPages()
	if err != nil {
		return err
	}

	summaries, records, err := occupancy(store, hf, tid, numPages)
	if err != nil {
		return err
	}

	fmt.Println(ui.RenderTitle("heap file " + hf.FilePath().String()))
	fmt.Println(ui.RenderKeyValues([][2]string{
		{"file id", hf.GetID().String()},
		{"schema", td.String()},
		{"record width", fmt.Sprintf("%d bytes", td.GetSize())},
		{"page size", fmt.Sprintf("%d bytes", hf.PageSize())},
		{"slots per page", fmt.Sprintf("%d", heap.Capacity(hf.PageSize(), int(td.GetSize())))},
		{"pages", fmt.Sprintf("%d", numPages)},
		{"records", fmt.Sprintf("%d", records)},
	}))
	fmt.Println()
	fmt.Println(ui.RenderOccupancy(summaries, opts.BarWidth))

	if opts.Records {
		src, err := scanSource(hf, tid, opts.Where)
		if err != nil {
			return err
		}
		if err := printRecords(src, opts.Limit); err != nil {
			return err
		}
	}

	if opts.Aggregate != "" {
		src, err := scanSource(hf, tid, opts.Where)
		if err != nil {
			return err
		}
		if err := printAggregate(src, opts.Aggregate); err != nil {
			return err
		}
	}

	stats := store.Stats()
	fmt.Println()
	fmt.Println(ui.RenderKeyValues([][2]string{
		{"pool hits", fmt.Sprintf("%d", stats.Hits)},
		{"pool misses", fmt.Sprintf("%d", stats.Misses)},
		{"evictions", fmt.Sprintf("%d", stats.Evictions)},
		{"pages locked", fmt.Sprintf("%d", len(store.LockedPages(tid)))},
	}))
	return nil
}

// occupancy reads each page under a shared lock and releases it straight
// away, so files larger than the pool can be summarized.
func occupancy(store *memory.PageStore, hf *heap.HeapFile, tid *transaction.TransactionID, numPages primitives.PageNumber) ([]ui.PageSummary, int, error) {
	summaries := make([]ui.PageSummary, 0, numPages)
	records := 0

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := pageIDOf(hf, pageNo)
		p, err := store.GetPage(tid, pid, transaction.ReadOnly)
		if err != nil {
			return nil, 0, err
		}
		hp, ok := p.(*heap.HeapPage)
		if !ok {
			return nil, 0, errors.Errorf("page %s is %T, not a heap page", pid, p)
		}

		used := hp.NumSlots() - hp.NumEmptySlots()
		records += used
		summaries = append(summaries, ui.PageSummary{PageNo: pageNo, Used: used, Capacity: hp.NumSlots()})
		store.ReleasePage(tid, pid)
	}
	return summaries, records, nil
}

// scanSource is a full scan of hf, filtered when where is set.
func scanSource(hf *heap.HeapFile, tid *transaction.TransactionID, where string) (iterator.DbIterator, error) {
	scan := iterator.NewFileScan(hf.Iterator(tid), hf.GetTupleDesc())
	if where == "" {
		return scan, nil
	}

	pred, err := filter.ParsePredicate(hf.GetTupleDesc(), where)
	if err != nil {
		return nil, err
	}
	return filter.NewFilter(pred, scan)
}

func printRecords(src iterator.DbIterator, limit int) error {
	td := src.GetTupleDesc()
	headers := []string{"record"}
	for i := 0; i < td.NumFields(); i++ {
		name, _ := td.GetFieldName(i)
		headers = append(headers, name)
	}

	rows, err := recordRows(src, limit)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(ui.RenderTable(headers, rows, 24))
	return nil
}

// recordRows renders the records of src as table rows, stopping after
// limit records when limit is positive.
func recordRows(src iterator.DbIterator, limit int) ([][]string, error) {
	if err := src.Open(); err != nil {
		return nil, err
	}
	defer src.Close()

	var (
		tuples []*tuple.Tuple
		err    error
	)
	if limit > 0 {
		tuples, err = iterator.Take(src, limit)
	} else {
		tuples, err = iterator.Collect(src)
	}
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(tuples))
	for _, t := range tuples {
		row := []string{"-"}
		if t.RecordID != nil {
			row[0] = t.RecordID.String()
		}
		for _, f := range t.Fields() {
			row = append(row, f.String())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func printAggregate(src iterator.DbIterator, expr string) error {
	op, aField, gField, err := parseAggregate(expr)
	if err != nil {
		return err
	}

	agg, err := aggregation.NewAggregateOperator(src, aField, gField, op)
	if err != nil {
		return err
	}
	if err := agg.Open(); err != nil {
		return err
	}
	defer agg.Close()

	results, err := iterator.Collect(agg)
	if err != nil {
		return err
	}

	rtd := agg.GetTupleDesc()
	headers := make([]string, rtd.NumFields())
	for i := range headers {
		headers[i], _ = rtd.GetFieldName(i)
	}
	rows := make([][]string, len(results))
	for i, t := range results {
		for _, f := range t.Fields() {
			rows[i] = append(rows[i], f.String())
		}
	}

	fmt.Println()
	fmt.Println(ui.RenderTitle(strings.ToUpper(expr)))
	fmt.Print(ui.RenderTable(headers, rows, 24))
	return nil
}
