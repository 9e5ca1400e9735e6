package mcpserver

// BulletLegend describes the bullet journal notation the text parser
// understands. LLM consumers should follow it when composing parse_text input.
const BulletLegend = `# Dagaz Bullet Notation Legend

One entry per line. A line starts with a bullet symbol, or is classified by
its wording when no symbol is present.

## Bullets

| Symbol | Meaning |
|--------|---------|
| ` + "`•`" + ` (also ` + "`·` `▪` `‣`" + `) | task, incomplete |
| ` + "`x`" + ` / ` + "`✓`" + ` | task, completed |
| ` + "`>`" + ` | task, migrated to another day |
| ` + "`<`" + ` | task, scheduled for a future date |
| ` + "`~`" + ` | task, cancelled |
| ` + "`○`" + ` / ` + "`o`" + ` | event |
| ` + "`-`" + ` | note |
| ` + "`!`" + ` | inspiration / idea |

## Priority

- A leading ` + "`*`" + ` before any bullet marks the entry high priority: ` + "`* • Pay rent`" + `.
- ` + "`!!`" + ` anywhere in the line, or a trailing ` + "`*`" + `, also raises priority.

## Date headers

A line that is only a date sets the collection date for the entries below it:

    March 15th
    3/15/25
    15th

Ordinal-only headers (` + "`15th`" + `) resolve against the most recent full date.

## Times, tags, contexts

- ` + "`@ 2:00 PM`" + ` attaches a due time and usually marks the line an event.
- ` + "`#tag`" + ` tokens become tags; ` + "`@context`" + ` tokens become contexts. Both are
  stripped from the stored content and lowercased.

## Example

    March 15th
    * • Pay rent #finance
    x Buy groceries @errands
    ○ Dentist @ 2:00 PM
    - Felt productive today
    ! App idea: plant watering tracker
`
