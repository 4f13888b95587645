package queryengine

import (
	"regexp"
	"strings"
)

// Correct applies deterministic, idempotent repairs to a backend-supplied
// filter expression, canonicalizing the JavaScript-flavored output models
// tend to produce into the expression grammar the executor compiles.
// Correct(Correct(s)) == Correct(s) for all inputs.
//
// Repairs, in order: fenced-code markers stripped; leading "return" and
// lambda heads ("expense =>") dropped; block bodies with local declarations
// reduced to their final expression; strict JS operators
// normalized; "month"/"year" pseudo-fields rewritten into explicit date
// derivations against the mode's date field; the term/goalYears synonym
// mistake fixed.
//
// One pass can expose further repairs (a stripped lambda head may reveal a
// nested one, mangled operators like "!===" shed one character per pass), so
// the pipeline reruns until the output stops changing.
func Correct(expr string) string {
	s := strings.TrimSpace(expr)
	for i := 0; i < maxCorrectionPasses; i++ {
		next := correctOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// maxCorrectionPasses bounds the fixpoint loop. Every repair shrinks the
// expression or eliminates its own trigger, so real inputs converge in two or
// three passes; the cap only guards against a rule regression.
const maxCorrectionPasses = 8

func correctOnce(s string) string {
	if s == "" {
		return ""
	}
	s = stripCodeFences(s)
	s = stripReturnPrefix(s)
	s = stripLambdaHead(s)
	s = reduceBlockBody(s)
	s = stripReturnPrefix(s)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	s = normalizeOperators(s)
	s = rewriteDatePseudoFields(s)
	s = rewriteFieldSynonyms(s)
	return strings.TrimSpace(s)
}

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	lambdaHeadRe = regexp.MustCompile(`^\(?\s*(expense|investment)\s*\)?\s*=>\s*`)
	returnRe     = regexp.MustCompile(`^return\s+`)
	declRe       = regexp.MustCompile(`(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([^;]+);`)

	expenseMonthRe    = regexp.MustCompile(`\bexpense\.month\b`)
	expenseYearRe     = regexp.MustCompile(`\bexpense\.year\b`)
	investmentMonthRe = regexp.MustCompile(`\binvestment\.month\b`)
	investmentYearRe  = regexp.MustCompile(`\binvestment\.year\b`)

	investmentTermRe = regexp.MustCompile(`\binvestment\.term\b`)
)

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// stripLambdaHead removes a single-argument arrow-function head. The
// parameter name itself carries no meaning at execution time: the executor
// binds the record under both accepted names.
func stripLambdaHead(s string) string {
	return lambdaHeadRe.ReplaceAllString(s, "")
}

// reduceBlockBody collapses "{ const x = ...; return <expr>; }" into the
// final expression, inlining any local declarations textually. Declarations
// the final expression never references are dropped.
func reduceBlockBody(s string) string {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return s
	}
	body := strings.TrimSpace(s[1 : len(s)-1])

	idx := strings.LastIndex(body, "return")
	if idx < 0 {
		return s
	}

	head := body[:idx]
	tail := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body[idx+len("return"):]), ";"))

	for _, decl := range declRe.FindAllStringSubmatch(head, -1) {
		name, value := decl[1], strings.TrimSpace(decl[2])
		nameRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		tail = nameRe.ReplaceAllString(tail, "("+value+")")
	}
	return tail
}

func stripReturnPrefix(s string) string {
	return returnRe.ReplaceAllString(s, "")
}

// normalizeOperators maps JS strict comparison operators and common method
// names to their CEL equivalents. Already-normal forms pass through
// untouched, so repeated application cannot double-convert.
func normalizeOperators(s string) string {
	s = strings.ReplaceAll(s, "!==", "!=")
	s = strings.ReplaceAll(s, "===", "==")
	s = strings.ReplaceAll(s, ".includes(", ".contains(")
	return s
}

// rewriteDatePseudoFields expands the "month"/"year" shorthand into explicit
// derivations against the correct underlying date field: expenses carry
// "date", investments carry "startDate".
func rewriteDatePseudoFields(s string) string {
	s = expenseMonthRe.ReplaceAllString(s, "month(expense.date)")
	s = expenseYearRe.ReplaceAllString(s, "year(expense.date)")
	s = investmentMonthRe.ReplaceAllString(s, "month(investment.startDate)")
	s = investmentYearRe.ReplaceAllString(s, "year(investment.startDate)")
	return s
}

// rewriteFieldSynonyms fixes the recurring term/goal confusion in investment
// predicates: the canonical field is goalYears.
func rewriteFieldSynonyms(s string) string {
	return investmentTermRe.ReplaceAllString(s, "investment.goalYears")
}
