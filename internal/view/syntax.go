package view

// Syntax documents the view block directives. It is served to MCP clients
// and printed by the CLI.
const Syntax = `# checkmark view block

One directive per line. Unknown lines are ignored.

title: <text>                         heading shown above the view
view: list stats                      any of list, stats (default: list)
status: all|done|undone               default: all
sort: date|file                       default: date, undated tasks last
search: <text>                        case-insensitive substring of the task text
exclude-tags: #archive, #someday      also excludes child tags (#archive/old)
exclude-folders: Archive, Notes/Old   also excludes sub-folders
expanded: true|false                  open the filter panel by default
date: next 2 weeks                    <next|last> <n> <days|weeks|months|years>
from: 2024-06-01                      inclusive lower bound, ignored with date:
to: 2024-06-30                        inclusive upper bound, ignored with date:
==Work==                              restrict to a category, repeatable

Task lines look like:

- [ ] Ship the release ==Work== 2024-06-15 #project/alpha
`
