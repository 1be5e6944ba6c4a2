package token

// Value carries the decoded literal payload of a token, when it has one.
// For NUMBER it is Float; for STRING/TEMPLATE_STR/IDENT it is Str (already
// escape-processed for STRING).
type Value struct {
	Str   string
	Float float64

	// TemplateDone is set on a TEMPLATE_STR token's value to indicate whether
	// this segment ended the template (closing backtick) or is followed by a
	// ${ expr } placeholder whose expression the parser must consume next,
	// then call Scanner.ContinueTemplateString to resume.
	TemplateDone bool
}
