// Package markup converts upstream reStructuredText and Markdown into MDX that
// the site renderer can load without tripping over braces, stray tags or math.
//
// All transforms are line-oriented text rewrites over the subset of syntax the
// mirrored repositories use. Fenced code is detected with a simple toggle on
// lines whose trimmed content starts with three backticks, so an unclosed
// fence disables escaping for the rest of the document.
package markup
