package catalog

// schemaV1 is the initial catalog schema.
//
// Every entity that cascades from ScanSession does so through an explicit
// ON DELETE CASCADE foreign key, so deleting a session (on fresh-scan
// replacement) prunes every dependent row without a separate sweep.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scan_sessions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source_root TEXT UNIQUE NOT NULL,
  source_drive_uuid TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'running',
  started_at REAL NOT NULL,
  completed_at REAL,
  files_count INTEGER NOT NULL DEFAULT 0,
  directories_count INTEGER NOT NULL DEFAULT 0,
  bytes_total INTEGER NOT NULL DEFAULT 0,
  error_message TEXT
);

CREATE TABLE IF NOT EXISTS completed_directories (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scan_session_id INTEGER NOT NULL REFERENCES scan_sessions(id) ON DELETE CASCADE,
  directory_path TEXT NOT NULL,
  file_count INTEGER NOT NULL DEFAULT 0,
  completed_at REAL NOT NULL,
  UNIQUE (scan_session_id, directory_path)
);

CREATE INDEX IF NOT EXISTS idx_completed_directories_session
  ON completed_directories(scan_session_id);

CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scan_session_id INTEGER NOT NULL REFERENCES scan_sessions(id) ON DELETE CASCADE,
  directory_path TEXT NOT NULL,
  source_path TEXT NOT NULL,
  filename_full TEXT NOT NULL,
  filename_base TEXT NOT NULL,
  extension TEXT,
  size_bytes INTEGER NOT NULL,

  mtime_epoch REAL NOT NULL,
  mtime_unix INTEGER NOT NULL,
  ctime_epoch REAL,
  ctime_unix INTEGER,
  birthtime_epoch REAL,
  birthtime_unix INTEGER,
  atime_epoch REAL,
  atime_unix INTEGER,

  hash_quick_start TEXT,
  hash_full TEXT,
  classification TEXT,

  metadata_json TEXT,

  date_path_hierarchy INTEGER,
  date_path_hierarchy_source TEXT,
  date_path_folder INTEGER,
  date_path_folder_source TEXT,
  date_path_filename INTEGER,
  date_path_filename_source TEXT,

  scanned_at_epoch REAL NOT NULL,
  scanned_at_unix INTEGER NOT NULL,

  UNIQUE (scan_session_id, source_path)
);

CREATE INDEX IF NOT EXISTS idx_files_session ON files(scan_session_id);
CREATE INDEX IF NOT EXISTS idx_files_session_dir ON files(scan_session_id, directory_path);
CREATE INDEX IF NOT EXISTS idx_files_size ON files(size_bytes);
CREATE INDEX IF NOT EXISTS idx_files_extension ON files(extension) WHERE extension IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_files_hash_quick_start ON files(hash_quick_start) WHERE hash_quick_start IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_files_hash_full ON files(hash_full) WHERE hash_full IS NOT NULL;

CREATE TABLE IF NOT EXISTS file_metadata (
  file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,

  date_original_epoch REAL,
  date_original_ymd INTEGER,
  date_digitized_epoch REAL,
  date_digitized_ymd INTEGER,
  date_modify_epoch REAL,
  date_modify_ymd INTEGER,

  make TEXT,
  model TEXT,
  lens_model TEXT,
  width INTEGER,
  height INTEGER,
  orientation INTEGER,

  duration_seconds REAL,
  video_frame_rate REAL,

  gps_latitude REAL,
  gps_longitude REAL,
  gps_altitude REAL,

  mime_type TEXT,
  metadata_families TEXT,
  metadata_json TEXT,

  extracted_at_epoch REAL NOT NULL,
  extracted_at_unix INTEGER NOT NULL,
  extractor_version TEXT NOT NULL,

  extraction_error TEXT,
  skip_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_file_metadata_date_original ON file_metadata(date_original_ymd) WHERE date_original_ymd IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_file_metadata_make_model ON file_metadata(make, model);
CREATE INDEX IF NOT EXISTS idx_file_metadata_gps ON file_metadata(gps_latitude, gps_longitude) WHERE gps_latitude IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_file_metadata_error ON file_metadata(extraction_error) WHERE extraction_error IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_file_metadata_skip_reason ON file_metadata(skip_reason) WHERE skip_reason IS NOT NULL;

CREATE TABLE IF NOT EXISTS folder_plan (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scan_session_id INTEGER NOT NULL REFERENCES scan_sessions(id) ON DELETE CASCADE,
  source_folder TEXT NOT NULL,

  resolved_date INTEGER,
  resolved_date_source TEXT,
  target_folder TEXT,
  bucket TEXT,

  total_file_count INTEGER NOT NULL DEFAULT 0,
  image_file_count INTEGER NOT NULL DEFAULT 0,
  images_with_date_count INTEGER NOT NULL DEFAULT 0,
  coverage_percent REAL NOT NULL DEFAULT 0,

  prevalent_date INTEGER,
  prevalent_count INTEGER NOT NULL DEFAULT 0,
  prevalent_percent REAL NOT NULL DEFAULT 0,
  unique_date_count INTEGER NOT NULL DEFAULT 0,
  min_date INTEGER,
  max_date INTEGER,
  date_span_months INTEGER,

  inherited_from_folder_id INTEGER REFERENCES folder_plan(id),
  is_subfolder INTEGER NOT NULL DEFAULT 0,

  min_coverage_threshold REAL NOT NULL,
  min_prevalence_threshold REAL NOT NULL,
  max_span_threshold INTEGER NOT NULL,

  UNIQUE (scan_session_id, source_folder)
);

CREATE INDEX IF NOT EXISTS idx_folder_plan_session ON folder_plan(scan_session_id);
CREATE INDEX IF NOT EXISTS idx_folder_plan_bucket ON folder_plan(bucket) WHERE bucket IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_folder_plan_resolved_date ON folder_plan(resolved_date) WHERE resolved_date IS NOT NULL;

CREATE TABLE IF NOT EXISTS file_plan (
  file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
  folder_plan_id INTEGER NOT NULL REFERENCES folder_plan(id) ON DELETE CASCADE,

  resolved_date INTEGER,
  resolved_date_source TEXT,
  target_path TEXT NOT NULL,
  target_filename TEXT NOT NULL,

  is_potential_duplicate INTEGER NOT NULL DEFAULT 0,
  duplicate_source_hash TEXT,
  is_sidecar INTEGER NOT NULL DEFAULT 0,

  resolution_reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_plan_folder_plan ON file_plan(folder_plan_id);
CREATE INDEX IF NOT EXISTS idx_file_plan_target_path ON file_plan(target_path);
CREATE INDEX IF NOT EXISTS idx_file_plan_duplicate ON file_plan(is_potential_duplicate) WHERE is_potential_duplicate = 1;
CREATE INDEX IF NOT EXISTS idx_file_plan_sidecar ON file_plan(is_sidecar) WHERE is_sidecar = 1;
`
