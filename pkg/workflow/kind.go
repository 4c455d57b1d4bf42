package workflow

// Kind identifies the browser action a step performs.
type Kind string

const (
	KindNavigate        Kind = "navigate"
	KindWaitForSelector Kind = "waitForSelector"
	KindWait            Kind = "wait"
	KindClick           Kind = "click"
	KindType            Kind = "type"
	KindSelect          Kind = "select"
	KindHover           Kind = "hover"
	KindScroll          Kind = "scroll"
	KindExtract         Kind = "extract"
	KindScreenshot      Kind = "screenshot"
	KindEvaluate        Kind = "evaluate"
)

// kinds lists every canonical kind. The action registry must cover it.
var kinds = []Kind{
	KindNavigate,
	KindWaitForSelector,
	KindWait,
	KindClick,
	KindType,
	KindSelect,
	KindHover,
	KindScroll,
	KindExtract,
	KindScreenshot,
	KindEvaluate,
}

// aliases map alternative step type names to canonical kinds.
var aliases = map[string]Kind{
	"goto":    KindNavigate,
	"pause":   KindWait,
	"execute": KindEvaluate,
}

// Kinds returns every canonical step kind.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind resolves a step type, including aliases, to its canonical kind.
func ParseKind(s string) (Kind, bool) {
	if kind, ok := aliases[s]; ok {
		return kind, true
	}
	for _, kind := range kinds {
		if string(kind) == s {
			return kind, true
		}
	}
	return "", false
}
