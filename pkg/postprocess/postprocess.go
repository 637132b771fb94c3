// Package postprocess applies the ordered, pure-function cleanup pass every
// generated reply goes through before reaching the session: strip any
// procedure section, scrub allergy/dislike metadata leakage, normalize the
// intro block, and collapse the ingredient block to one line. Every
// transformation is idempotent, so running the whole pass twice is a no-op
// on its own output.
package postprocess

import (
	"regexp"
	"strings"
)

// Process runs the full ordered pass over generated text.
func Process(text string) string {
	text = stripProcedure(text)
	text = stripSafetyLines(text)
	text = normalizeIntro(text)
	text = normalizeIngredients(text)
	return text
}

var procedurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\n조리법[\s:：]+.*`),
	regexp.MustCompile(`(?is)\n\d+\.\s+.*`),
	regexp.MustCompile(`(?is)\n\*\*조리법\*\*[\s:：]+.*`),
}

// stripProcedure removes any procedure section beginning at a numbered-step
// marker or the "조리법" keyword. Only the first pattern found fires, since
// later patterns would otherwise re-match the already-truncated remainder.
func stripProcedure(text string) string {
	for _, pattern := range procedurePatterns {
		if loc := pattern.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[:loc[0]])
		}
	}
	return text
}

var safetyLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\*알레르기.*?\n`),
	regexp.MustCompile(`(?i)알레르기 재료.*?\n`),
	regexp.MustCompile(`(?i)비선호 음식.*?\n`),
}

// stripSafetyLines deletes lines that advertise allergy/dislike metadata;
// these describe constraints fed into the prompt and must never surface.
func stripSafetyLines(text string) string {
	for _, pattern := range safetyLinePatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return text
}

var introSectionPattern = regexp.MustCompile(`(?s)\*\*소개:\*\*\s*(.+?)(?:\n\*\*|$)`)

var emojiClusterPattern = regexp.MustCompile(`[ᄀ-ᄒ]{2,}`)
var emoticonPattern = regexp.MustCompile(`[:;]\)|:\(|:\)|\^\^|ㅎㅎ|ㅋㅋ`)
var whitespacePattern = regexp.MustCompile(`\s+`)

var casualPhrases = []*regexp.Regexp{
	regexp.MustCompile(`알려드릴게요[!\s]*`),
	regexp.MustCompile(`드릴게요[!\s]*`),
	regexp.MustCompile(`[~]+`),
	regexp.MustCompile(`요[~]+`),
	regexp.MustCompile(`답니다[:\s]*\)`),
	regexp.MustCompile(`하죠[!\s]*`),
	regexp.MustCompile(`(?s)그만큼.*?있답니다`),
	regexp.MustCompile(`레시피를 알려드릴게요`),
	regexp.MustCompile(`소개해드릴게요`),
}

// normalizeIntro removes emoji and informal suffixes from the "**소개:**"
// block via a fixed pattern list, collapses whitespace, and ensures
// terminal punctuation.
func normalizeIntro(text string) string {
	match := introSectionPattern.FindStringSubmatchIndex(text)
	if match == nil {
		return text
	}

	introText := strings.TrimSpace(text[match[2]:match[3]])
	introText = emojiClusterPattern.ReplaceAllString(introText, "")
	introText = emoticonPattern.ReplaceAllString(introText, "")
	for _, phrase := range casualPhrases {
		introText = phrase.ReplaceAllString(introText, "")
	}
	introText = strings.TrimSpace(whitespacePattern.ReplaceAllString(introText, " "))
	if introText != "" && !strings.HasSuffix(introText, ".") {
		introText += "."
	}

	return text[:match[0]] + "**소개:** " + introText + text[match[3]:]
}

var vagueQuantityTerms = []string{"약간", "적당량", "조금", "넉넉히", "충분히", "적절히", "취향껏", "소량", "다량"}

var quantityPattern = regexp.MustCompile(`\d+|[가-힣]+스푼|작은술|큰술|컵|개|대|ml|g|kg|L|방울|꼬집`)
var bulletPrefixPattern = regexp.MustCompile(`^[-*]\s*`)

// normalizeIngredients splits the "**재료:**" block into individual entries
// by line, drops entries naming a vague quantity or lacking any numeric
// quantity/measurement unit, and joins the survivors into one comma-
// separated line. Idempotent: a line already in "name amount" form survives
// unchanged, and running the pass again on an already-collapsed line still
// finds the same single comma-joined entry list.
func normalizeIngredients(text string) string {
	const header = "**재료:**"
	idx := strings.Index(text, header)
	if idx == -1 {
		return text
	}

	before := text[:idx]
	section := text[idx+len(header):]

	var survivors []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "**") {
			break
		}

		line = bulletPrefixPattern.ReplaceAllString(line, "")
		if line == "" {
			continue
		}

		for _, entry := range strings.Split(line, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if containsAny(entry, vagueQuantityTerms) {
				continue
			}
			if !quantityPattern.MatchString(entry) {
				continue
			}
			survivors = append(survivors, entry)
		}
	}

	return before + header + " " + strings.Join(survivors, ", ")
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
