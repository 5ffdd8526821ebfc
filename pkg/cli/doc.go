// Package cli holds the pieces shared by callbridge subcommands: where
// local state lives, how request files are loaded and how results are
// printed (yaml, json or a table).
//
//	cli.Output(records, cli.OutputOptions{Format: cli.FormatTable})
package cli
