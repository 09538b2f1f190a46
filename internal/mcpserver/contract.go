package mcpserver

// DocumentFormatContract describes the Markdown document format and linking
// conventions LLM consumers should follow.
const DocumentFormatContract = `# notegraph Document Format

Documents are Markdown files inside a collection (a top-level folder).

## Names and links

- A document is identified by its file name, e.g. ` + "`" + `Todo.md` + "`" + `.
- Link to another document with ` + "`" + `[[Todo]]` + "`" + ` or ` + "`" + `[[Todo.md]]` + "`" + `. Links are
  resolved by name across all collections and are case-sensitive.
- Names must not contain ` + "`" + `/` + "`" + `, ` + "`" + `\` + "`" + `, ` + "`" + `[[` + "`" + ` or ` + "`" + `]]` + "`" + ` and must not start with a dot.
- A link to a name no document answers to is a broken link.
- A document never links to itself.

## Relations

- ` + "`" + `connect_documents` + "`" + ` appends a line ` + "`" + `Related: [[Target]]` + "`" + `.
- ` + "`" + `disconnect_documents` + "`" + ` deletes lines that hold only the link (bare, as a
  list item, or behind a label such as ` + "`" + `Related:` + "`" + ` or ` + "`" + `See:` + "`" + `) and unwraps
  links inside prose.
- ` + "`" + `rename_document` + "`" + ` rewrites links to the old name in the same collection.

## README

A document named ` + "`" + `README.md` + "`" + ` (any case) anchors its collection's graph.

## Example

` + "```" + `markdown
---
title: Weekly standup
tags: [meeting-notes]
---

# Weekly standup

- [[Roadmap]]
- Review the [[Design]] draft

Related: [[Team]]
` + "```" + `
`
