// Package ui renders sync progress and results in the terminal.
//
// [Model] is a bubbletea program for `likesync sync --tui`:
//  1. [SyncView] : spinner, progress bar and the latest update while pages are fetched and reconciled
//  2. [ResultView] : run statistics and failed records
//  3. [TracksView] : browsable list of the reconciled tracks
//
// Progress updates flow through a channel from [tasks.LibraryEngine], one message per update.
//
// [RenderSummary] produces the same statistics block with lipgloss for plain CLI output.
package ui
