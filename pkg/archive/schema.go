package archive

// metadataSchemaJSON is the embedded JSON Schema for metadata.json: it
// enforces the required top-level keys while tolerating any "custom"
// shape, and ignoring unknown top-level keys (forward compatibility per
// the loader's "tolerate unknown keys" rule).
const metadataSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "created_date", "app_name", "app_version", "data_info"],
  "properties": {
    "version": {"type": "string"},
    "created_date": {"type": "string"},
    "app_name": {"type": "string"},
    "app_version": {"type": "string"},
    "data_info": {
      "type": "object",
      "required": ["row_count", "column_count", "columns", "dtypes"],
      "properties": {
        "row_count": {"type": "integer"},
        "column_count": {"type": "integer"},
        "columns": {"type": "array", "items": {"type": "string"}},
        "dtypes": {"type": "object"}
      }
    },
    "custom": {"type": "object"}
  }
}`

// layoutSchemaJSON is the embedded JSON Schema for layout.json: it requires
// a minimal tab/graph tree and otherwise allows any shape, since the
// layout is application-defined beyond that minimum.
const layoutSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tabs"],
  "properties": {
    "tabs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tab_id", "graphs"],
        "properties": {
          "tab_id": {"type": "string"},
          "graphs": {"type": "array"}
        }
      }
    },
    "cursor": {"type": "object"},
    "settings": {"type": "object"}
  }
}`
