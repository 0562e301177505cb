package mcpserver

// PromptFormatContract describes how LLM consumers should shape prompt
// content passed to create_prompt.
const PromptFormatContract = `# PromptHub Prompt Format Contract

A prompt is a reusable text snippet. Its content is Markdown, optionally
preceded by YAML frontmatter.

## Structure

` + "````" + `markdown
---
title: Code reviewer                # OPTIONAL – falls back to the first heading
summary: Reviews a diff for bugs    # OPTIONAL – falls back to the first paragraph
---

# Code reviewer

You are a senior engineer. Review the diff below and list concrete issues.

` + "```" + `diff
{{diff}}
` + "```" + `
` + "````" + `

## Rules

1. **Title** comes from the ` + "`" + `title` + "`" + ` argument, then frontmatter ` + "`" + `title` + "`" + `, then the
   first heading. Without any of them the prompt is saved as "Untitled".
2. **Summary** is one line, at most 120 characters.
3. **Tags** are passed by name in the ` + "`" + `tags` + "`" + ` argument (comma separated). Unknown
   names are created with the default color; names compare case-insensitively.
4. **Model** is linked with ` + "`" + `modelName` + "`" + `. Use ` + "`" + `list_models` + "`" + ` to see the catalog. A model
   that is later deleted leaves the prompt unlinked.
5. **Code blocks** must be fenced and should name their language so the editor
   can highlight them.
6. **Encoding** is UTF-8. Content may use any language.

## Media

- Attach images or videos with the ` + "`" + `attach_media` + "`" + ` tool, passing an http(s) URL or a
  base64 data URI. Files are copied into the prompt's own folder.
- Media is not referenced from the Markdown body; the app shows it beside the prompt.
- Supported: png, jpg, jpeg, gif, webp, heic for images; mp4, mov, webm for videos.
`
