package mcpserver

// CardFormatContract describes the canonical card document format that
// LLM consumers should expect when reading cards from the deck.
const CardFormatContract = `# Raido Card Format Contract

Every card in a Raido deck is a JSON document served with the
` + "`" + `application/json` + "`" + ` content type.

## Structure

` + "```" + `json
{
  "title": "Human-readable title",
  "text": "Body text. Use [[Other Card]] markers to link to other cards."
}
` + "```" + `

## Rules

1. **Card ids** are the filename stem (no ` + "`" + `.json` + "`" + ` extension). Ids contain
   only letters, digits, underscores, hyphens, and spaces, and are at most
   100 characters long. Path separators and ` + "`" + `..` + "`" + ` are never part of an id.
2. **` + "`" + `title` + "`" + ` is optional.** Missing or non-string titles display as
   "Untitled Card". Titles longer than 200 characters are truncated.
3. **` + "`" + `text` + "`" + ` is optional.** Missing or non-string text displays as
   "No content available.". Text longer than 50000 characters is truncated.
4. **Documents that are not JSON objects** display as an "Invalid Card"
   placeholder rather than an error.
5. **Links** use double brackets: ` + "`" + `[[Other Card]]` + "`" + `. The target must be a
   valid card id. Only the first 50 markers in a card become links.
6. **The deck index** is a plain-text file (one card id per line) that
   enumerates every card. Links to ids outside the index render as broken.

## Example

` + "```" + `json
{
  "title": "Welcome",
  "text": "This deck starts here. See [[About]] or browse the [[Help]] card."
}
` + "```" + `
`
