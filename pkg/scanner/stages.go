package scanner

import (
	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	"github.com/adedayo/checkmate-riskscan/pkg/rules"
)

//Candidate is a rule match on its way through the refinement pipeline
type Candidate struct {
	Finding diagnostics.Finding
	Rule    *rules.Rule
	//Line is the normalised text of the matched line
	Line string
}

//Stage is one step of the refinement pipeline. Stages can only drop candidates, never alter them.
type Stage interface {
	Name() string
	Keep(c Candidate) bool
}

//StageFunc adapts a function to a Stage
type StageFunc struct {
	Label string
	Fn    func(Candidate) bool
}

func (s StageFunc) Name() string          { return s.Label }
func (s StageFunc) Keep(c Candidate) bool { return s.Fn(c) }

//CommentStage drops matches of skip-if-comment rules on comment lines
func CommentStage() Stage {
	return StageFunc{
		Label: "comment",
		Fn: func(c Candidate) bool {
			return !(c.Rule.SkipIfComment && common.IsCommentLine(c.Finding.File, c.Line))
		},
	}
}

//AllowlistStage drops matches of contextual rules that the allowlist suppresses
func AllowlistStage(al diagnostics.AllowlistProvider) Stage {
	return StageFunc{
		Label: "allowlist",
		Fn: func(c Candidate) bool {
			return !(c.Rule.Contextual && al.Suppress(c.Finding, c.Finding.File, c.Line))
		},
	}
}

//ExclusionStage drops matches the user has chosen to exclude
func ExclusionStage(ep diagnostics.ExclusionProvider) Stage {
	return StageFunc{
		Label: "exclusion",
		Fn: func(c Candidate) bool {
			return !ep.ShouldExclude(c.Finding, c.Line)
		},
	}
}
