package mcpserver

// DateRules describes how `date` and `updated` are reconciled, for LLM
// consumers deciding whether a reported change is expected.
const DateRules = `# Date Rules

Every Markdown document carries YAML front matter between ` + "`---`" + ` fences.
Two keys are managed:

- ` + "`date`" + `: when the document was first published. Always present after a run.
- ` + "`updated`" + `: when it last changed after publication. Absent until the document
  is edited on a later day than ` + "`date`" + `.

## Inputs

- the last commit date of the file in git (none for files never committed),
- the current ` + "`date`" + ` and ` + "`updated`" + ` values,
- today's date.

## Rules

1. A ` + "`date`" + ` that is not a date, or lies after today, is ignored.
2. An ` + "`updated`" + ` that is not a date, lies before ` + "`date`" + ` or after today
   is replaced by today.
3. ` + "`date`" + ` is kept when usable, else it becomes the last commit date,
   else today.
4. A file with no git history gets ` + "`updated`" + ` set to today unless its
   ` + "`date`" + ` is today.
5. A dated file without ` + "`updated`" + ` gets ` + "`updated`" + ` set to today once a
   commit after ` + "`date`" + ` exists.
6. An existing ` + "`updated`" + ` moves to today once a commit after it exists,
   and is removed when ` + "`date`" + ` is today.
7. A last commit date later than today aborts the whole run.

Every ignored or replaced value is reported as a warning.

Running the tool twice on the same day never changes a file the second time.
Only these two keys are rewritten. Other keys keep their order and comments,
and the body is left byte for byte.
`
