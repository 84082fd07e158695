package mcpserver

// LogFormatContract describes the log document so LLM consumers can read it
// without guessing.
const LogFormatContract = `# Note Watch Log Format

The log document lives at ` + "`" + `<logDir>/note-watch.md` + "`" + ` inside the vault.
` + "`" + `logDir` + "`" + ` defaults to ` + "`" + `NoteWatchPlugin` + "`" + ` and is changed with the
` + "`" + `set_log_dir` + "`" + ` tool.

## Structure

` + "```" + `markdown
---
tags: [log]                         # OPTIONAL – kept in place, never rewritten
---
1/2/2024, 3:04:06 AM - Contents of [[Notes/Idea.md]] were modified

1/2/2024, 3:04:05 AM - New file added: [[Notes/Idea.md]]

` + "```" + `

## Rules

1. **Newest first.** Each entry is inserted directly below the metadata block,
   or at the very top when the document has none.
2. **One line per entry**: ` + "`" + `<timestamp> - <phrase>` + "`" + `, followed by a blank line.
3. **Phrases**:
   - ` + "`" + `New file added: [[path]]` + "`" + `
   - ` + "`" + `File deleted: path` + "`" + ` (no link, the file is gone)
   - ` + "`" + `File moved from: old/path to: [[new/path]]` + "`" + `
   - ` + "`" + `Contents of [[path]] were modified` + "`" + `
4. **Untitled notes** are logged as the bare name ` + "`" + `Untitled.md` + "`" + ` without a link.
5. **The log never logs itself.** Changes to the log document are not recorded.
`
