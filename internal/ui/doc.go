// Package ui renders terminal output for the modelserve and modelfetch
// commands.
//
// Components follow a "print and move on" pattern built on Lipgloss:
//
//   - Banner: boxed summary of what a command is about to do
//   - Result: success, warning or failure box with ordered details
//   - DownloadModel: Bubble Tea model driving a bubbles/progress bar
//
// Printer falls back to plain lines when stdout is not a terminal, so logs
// captured by CI or a file stay readable.
//
// # Logging Integration
//
// zap logging is silent unless MODELSERVE_LOG_LEVEL or --log-level is set,
// which keeps the styled output clean by default.
package ui
