// Package archive implements the Project Archive: a zip container holding
// a zstd-compressed parquet data file, a JSON layout tree, and JSON
// metadata in the .mpai format.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/parquet-go"
	parquetzstd "github.com/segmentio/parquet-go/compress/zstd"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/traceframe-dev/traceframe/pkg/model"
)

// instrumentationName identifies this package's tracer for Save/Load/Peek
// spans; it resolves through the global TracerProvider, which
// observability.Init sets to a noop provider, so spans are only exported if
// a caller installs a real provider with otel.SetTracerProvider.
const instrumentationName = "github.com/traceframe-dev/traceframe/pkg/archive"

var tracer = otel.Tracer(instrumentationName)

// CurrentVersion is the metadata format version this build writes. Loaders
// accept this and every version in supportedVersions; anything else fails
// with ErrArchiveInvalid rather than attempting an implicit migration.
const CurrentVersion = "1.0"

// RequiredExtension is the extension save/load enforce on archive paths.
const RequiredExtension = ".mpai"

var supportedVersions = map[string]bool{"1.0": true}

const (
	entryData     = "data.parquet"
	entryLayout   = "layout.json"
	entryMetadata = "metadata.json"
)

// ColumnSource supplies materialized column data at save time.
type ColumnSource interface {
	Columns() []string
	Column(name string) ([]float64, error)
}

// DataInfo is the metadata.json "data_info" block.
type DataInfo struct {
	RowCount    int               `json:"row_count"`
	ColumnCount int               `json:"column_count"`
	Columns     []string          `json:"columns"`
	Dtypes      map[string]string `json:"dtypes"`
}

// Metadata is the full metadata.json document.
type Metadata struct {
	Version     string         `json:"version"`
	CreatedDate string         `json:"created_date"`
	AppName     string         `json:"app_name"`
	AppVersion  string         `json:"app_version"`
	DataInfo    DataInfo       `json:"data_info"`
	Custom      map[string]any `json:"custom,omitempty"`
}

type layoutDocument struct {
	Tabs     []model.TabLayout  `json:"tabs"`
	Cursor   *model.CursorState `json:"cursor,omitempty"`
	Settings map[string]any     `json:"settings,omitempty"`
}

// LoadResult is what Load returns: the materialized columns, layout, and
// metadata of a project archive.
type LoadResult struct {
	Columns  map[string][]float64
	Table    model.SourceTable
	Layout   LayoutState
	Metadata Metadata
}

// LayoutState bundles everything layout.json persists beyond the tab tree:
// the cursor controller's state and free-form application settings.
type LayoutState struct {
	Tabs     []model.TabLayout
	Cursor   *model.CursorState
	Settings map[string]any
}

// Save writes cols, table, and layout into a new .mpai archive at path,
// along with extraMetadata under metadata.json's "custom" key. The path
// must end in RequiredExtension.
func Save(path string, cols ColumnSource, table model.SourceTable, layout LayoutState, extraMetadata map[string]any) error {
	ctx, span := tracer.Start(context.Background(), "archive.save", trace.WithAttributes(
		attribute.Int("row_count", table.RowCount),
		attribute.Int("column_count", len(table.ColumnNames)),
	))
	defer span.End()

	start := time.Now()

	err := save(ctx, path, cols, table, layout, extraMetadata)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.Default().Warn("archive save failed", "path", path, "error", err)

		return err
	}

	span.SetStatus(codes.Ok, "")
	slog.Default().Info("archive saved", "path", path, "rows", table.RowCount, "duration", time.Since(start))

	return nil
}

func save(_ context.Context, path string, cols ColumnSource, table model.SourceTable, layout LayoutState, extraMetadata map[string]any) error {
	if filepath.Ext(path) != RequiredExtension {
		return fmt.Errorf("%w: archive path must end in %s", model.ErrArchiveInvalid, RequiredExtension)
	}

	dataBytes, err := encodeParquet(cols, table)
	if err != nil {
		return fmt.Errorf("%w: encode data.parquet: %v", model.ErrIOFailure, err)
	}

	layoutBytes, err := encodeLayout(layout)
	if err != nil {
		return fmt.Errorf("%w: encode layout.json: %v", model.ErrIOFailure, err)
	}

	meta := Metadata{
		Version:     CurrentVersion,
		CreatedDate: time.Now().UTC().Format(time.RFC3339),
		AppName:     "traceframe",
		AppVersion:  "0.1.0",
		DataInfo: DataInfo{
			RowCount:    table.RowCount,
			ColumnCount: len(table.ColumnNames),
			Columns:     table.ColumnNames,
			Dtypes:      dtypeStrings(table),
		},
		Custom: extraMetadata,
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata.json: %v", model.ErrIOFailure, err)
	}

	if err := validateAgainstSchema(metadataSchemaJSON, metaBytes); err != nil {
		return fmt.Errorf("%w: metadata.json: %v", model.ErrArchiveInvalid, err)
	}

	if err := validateAgainstSchema(layoutSchemaJSON, layoutBytes); err != nil {
		return fmt.Errorf("%w: layout.json: %v", model.ErrArchiveInvalid, err)
	}

	return writeZip(path, dataBytes, layoutBytes, metaBytes)
}

func dtypeStrings(table model.SourceTable) map[string]string {
	dtypes := make(map[string]string, len(table.ColumnTypes))
	for name, t := range table.ColumnTypes {
		dtypes[name] = t.String()
	}

	return dtypes
}

func writeZip(path string, dataBytes, layoutBytes, metaBytes []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create archive: %v", model.ErrIOFailure, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for _, entry := range []struct {
		name string
		data []byte
	}{
		{entryData, dataBytes},
		{entryLayout, layoutBytes},
		{entryMetadata, metaBytes},
	} {
		w, err := zw.Create(entry.name)
		if err != nil {
			return fmt.Errorf("%w: create zip entry %s: %v", model.ErrIOFailure, entry.name, err)
		}

		if _, err := w.Write(entry.data); err != nil {
			return fmt.Errorf("%w: write zip entry %s: %v", model.ErrIOFailure, entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finalize archive: %v", model.ErrIOFailure, err)
	}

	return nil
}

// Load reads a .mpai archive at path, validating its metadata and layout
// against the embedded schemas and checking the format version.
func Load(path string) (*LoadResult, error) {
	_, span := tracer.Start(context.Background(), "archive.load", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	start := time.Now()

	result, err := load(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.Default().Warn("archive load failed", "path", path, "error", err)

		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	slog.Default().Info("archive loaded", "path", path, "rows", result.Table.RowCount, "duration", time.Since(start))

	return result, nil
}

func load(path string) (*LoadResult, error) {
	if filepath.Ext(path) != RequiredExtension {
		return nil, fmt.Errorf("%w: archive path must end in %s", model.ErrArchiveInvalid, RequiredExtension)
	}

	zr, entries, err := openZip(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	metaBytes, err := readEntry(entries, entryMetadata)
	if err != nil {
		return nil, err
	}

	if err := validateAgainstSchema(metadataSchemaJSON, metaBytes); err != nil {
		return nil, fmt.Errorf("%w: metadata.json: %v", model.ErrArchiveInvalid, err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: unmarshal metadata.json: %v", model.ErrArchiveInvalid, err)
	}

	if !supportedVersions[meta.Version] {
		return nil, fmt.Errorf("%w: unknown archive version %q", model.ErrArchiveInvalid, meta.Version)
	}

	layoutBytes, err := readEntry(entries, entryLayout)
	if err != nil {
		return nil, err
	}

	if err := validateAgainstSchema(layoutSchemaJSON, layoutBytes); err != nil {
		return nil, fmt.Errorf("%w: layout.json: %v", model.ErrArchiveInvalid, err)
	}

	layout, err := decodeLayout(layoutBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: decode layout.json: %v", model.ErrArchiveInvalid, err)
	}

	dataBytes, err := readEntry(entries, entryData)
	if err != nil {
		return nil, err
	}

	table := model.SourceTable{
		ColumnNames: meta.DataInfo.Columns,
		ColumnTypes: columnTypesFromDtypes(meta.DataInfo.Dtypes),
		RowCount:    meta.DataInfo.RowCount,
	}

	columns, err := decodeParquet(dataBytes, table.ColumnNames, table.RowCount)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data.parquet: %v", model.ErrArchiveInvalid, err)
	}

	return &LoadResult{Columns: columns, Table: table, Layout: layout, Metadata: meta}, nil
}

func columnTypesFromDtypes(dtypes map[string]string) map[string]model.ColumnType {
	types := make(map[string]model.ColumnType, len(dtypes))
	for name, s := range dtypes {
		switch s {
		case model.ColumnInt64.String():
			types[name] = model.ColumnInt64
		case model.ColumnBool.String():
			types[name] = model.ColumnBool
		case model.ColumnString.String():
			types[name] = model.ColumnString
		case model.ColumnDatetime.String():
			types[name] = model.ColumnDatetime
		default:
			types[name] = model.ColumnFloat64
		}
	}

	return types
}

// Validate reports whether path is a well-formed, currently-supported
// project archive without returning its data.
func Validate(path string) (bool, string) {
	_, err := Peek(path)
	if err != nil {
		return false, err.Error()
	}

	return true, ""
}

// Peek reads only metadata.json (via the zip central directory), never
// inflating data.parquet, so it stays cheap on very large archives.
func Peek(path string) (*Metadata, error) {
	_, span := tracer.Start(context.Background(), "archive.peek", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	meta, err := peek(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return meta, err
}

func peek(path string) (*Metadata, error) {
	if filepath.Ext(path) != RequiredExtension {
		return nil, fmt.Errorf("%w: archive path must end in %s", model.ErrArchiveInvalid, RequiredExtension)
	}

	zr, entries, err := openZip(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	metaBytes, err := readEntry(entries, entryMetadata)
	if err != nil {
		return nil, err
	}

	if err := validateAgainstSchema(metadataSchemaJSON, metaBytes); err != nil {
		return nil, fmt.Errorf("%w: metadata.json: %v", model.ErrArchiveInvalid, err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: unmarshal metadata.json: %v", model.ErrArchiveInvalid, err)
	}

	if !supportedVersions[meta.Version] {
		return nil, fmt.Errorf("%w: unknown archive version %q", model.ErrArchiveInvalid, meta.Version)
	}

	return &meta, nil
}

func openZip(path string) (*zip.ReadCloser, map[string]*zip.File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open archive: %v", model.ErrIOFailure, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	for _, required := range []string{entryData, entryLayout, entryMetadata} {
		if _, ok := entries[required]; !ok {
			zr.Close()

			return nil, nil, fmt.Errorf("%w: missing required entry %s", model.ErrArchiveInvalid, required)
		}
	}

	return zr, entries, nil
}

func readEntry(entries map[string]*zip.File, name string) ([]byte, error) {
	f, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing entry %s", model.ErrArchiveInvalid, name)
	}

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %s: %v", model.ErrIOFailure, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read entry %s: %v", model.ErrIOFailure, name, err)
	}

	return data, nil
}

func validateAgainstSchema(schemaJSON string, document []byte) error {
	var decoded any
	if err := json.Unmarshal(document, &decoded); err != nil {
		return err
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(decoded)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return errors.New(joinErrors(msgs))
	}

	return nil
}

func joinErrors(msgs []string) string {
	out := ""

	for i, m := range msgs {
		if i > 0 {
			out += "; "
		}

		out += m
	}

	return out
}

func encodeLayout(layout LayoutState) ([]byte, error) {
	doc := layoutDocument{Tabs: layout.Tabs, Cursor: layout.Cursor, Settings: layout.Settings}
	if doc.Tabs == nil {
		doc.Tabs = []model.TabLayout{}
	}

	return json.MarshalIndent(doc, "", "  ")
}

func decodeLayout(data []byte) (LayoutState, error) {
	var doc layoutDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return LayoutState{}, err
	}

	return LayoutState{Tabs: doc.Tabs, Cursor: doc.Cursor, Settings: doc.Settings}, nil
}

// encodeParquet writes every column in table.ColumnNames as a zstd-compressed
// double column, row-aligned by index.
func encodeParquet(cols ColumnSource, table model.SourceTable) ([]byte, error) {
	fields := make(parquet.Group, len(table.ColumnNames))
	for _, name := range table.ColumnNames {
		fields[name] = parquet.Leaf(parquet.DoubleType)
	}

	schema := parquet.NewSchema("row", fields)

	var buf bytes.Buffer

	writer := parquet.NewWriter(&buf, schema, parquet.Compression(&parquetzstd.Codec{}))

	columnData := make(map[string][]float64, len(table.ColumnNames))

	for _, name := range table.ColumnNames {
		data, err := cols.Column(name)
		if err != nil {
			return nil, err
		}

		columnData[name] = data
	}

	for i := 0; i < table.RowCount; i++ {
		row := make(map[string]any, len(table.ColumnNames))

		for _, name := range table.ColumnNames {
			data := columnData[name]
			if i < len(data) {
				row[name] = data[i]
			} else {
				row[name] = 0.0
			}
		}

		if _, err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeParquet(data []byte, columnNames []string, rowCount int) (map[string][]float64, error) {
	fields := make(parquet.Group, len(columnNames))
	for _, name := range columnNames {
		fields[name] = parquet.Leaf(parquet.DoubleType)
	}

	schema := parquet.NewSchema("row", fields)

	reader := parquet.NewReader(bytes.NewReader(data), schema)
	defer reader.Close()

	columns := make(map[string][]float64, len(columnNames))
	for _, name := range columnNames {
		columns[name] = make([]float64, 0, rowCount)
	}

	for {
		row := make(map[string]any, len(columnNames))

		err := reader.Read(&row)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		for _, name := range columnNames {
			v, _ := row[name].(float64)
			columns[name] = append(columns[name], v)
		}
	}

	return columns, nil
}
