package mcpserver

// TaskFormatContract describes how task lines are written so that LLM
// consumers can read and edit them consistently.
const TaskFormatContract = `# checkmark Task Line Format

A task is any Markdown list item with a checkbox:

` + "```" + `markdown
- [ ] Open task
- [x] Finished task
  * [ ] Nested task with a star bullet
` + "```" + `

## Metadata

1. **Categories** are written as ` + "`" + `==Name==` + "`" + `. A task may have several.
   Names are matched case-insensitively.
2. **Date** is the last ` + "`" + `YYYY-MM-DD` + "`" + ` on the line. Earlier dates are plain text.
3. **Tags** are ` + "`" + `#tag` + "`" + ` or hierarchical ` + "`" + `#area/sub` + "`" + `. Tags declared in the
   document frontmatter or body apply to every task in the document.

## Editing rules

- Toggle a task with the ` + "`" + `toggle_task` + "`" + ` tool, never by rewriting the file.
- Change a date with ` + "`" + `change_task_date` + "`" + `. Without an existing date the new date is
  appended to the line.
- Line numbers are zero-based and only valid for the latest scan. Call
  ` + "`" + `refresh_tasks` + "`" + ` after editing documents by other means.

## Example

` + "```" + `markdown
- [ ] Ship the release ==Work== ==Urgent== 2024-06-15 #project/alpha
` + "```" + `
`
