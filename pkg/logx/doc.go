// Package logx configures sheetcache's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Level/sink changes applicable at runtime without re-plumbing loggers
package logx
