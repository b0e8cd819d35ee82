package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// Extension sets are matched as substrings of the lowercased URL, so a
// query string or path segment containing ".png" also counts.
var (
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".svg"}
	videoExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv", ".flv", ".wmv"}
	fileExtensions  = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".zip", ".rar", ".txt", ".json"}
)

var commandPrefixes = []string{"/", "!", "?", ".", "-", "$", "%", "&", ">", "<"}

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)

// Self-disclosed contact details, addresses, birth dates, credentials,
// ages and full names, in English and French.
var personalInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(mon|my|email|mail|contact|adresse)\s*:?\s*[\w.-]+@[\w.-]+\.\w+\b`),
	regexp.MustCompile(`(?i)\b(tel|phone|telephone|numero|number|appel|call|contact)\s*:?\s*[\d\s.+-]{10,}`),
	regexp.MustCompile(`(?i)\b(habite|j'habite|live at|address|adresse|rue|street|avenue|boulevard)\s*:?\s*.{10,}`),
	regexp.MustCompile(`(?i)\b(né le|born|anniversaire|birthday|naissance|dob|date of birth)\s*:?\s*\d{1,2}[-/.\s]\d{1,2}[-/.\s]\d{2,4}`),
	regexp.MustCompile(`(?i)\b(password|mdp|mot de passe|pwd|login|identifiant)\s*:?\s*\S+`),
	regexp.MustCompile(`(?i)\b(j'ai|i am|i'm|age)\s*:?\s*\d{1,2}\s*(ans|years?\s*old)`),
	regexp.MustCompile(`(?i)\b(je m'appelle|my name is|i'm called|nom complet|full name)\s*:?\s*[A-Z][a-z]+\s+[A-Z][a-z]+`),
}

// Direct insults, harassment, slurs, explicit content and threats.
// Profanity not aimed at anyone is left to the remote fallback.
var inappropriatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(tu es?|you'?re|t'es|toi|you)\s+(un\s+)?(connard|connasse|salope|pute|pd|pédé|gogol|débile|crétin|abruti|bitch|asshole|retard|faggot|cunt|whore|slut)\b`),
	regexp.MustCompile(`(?i)\b(nique\s+(ta|sa|leur)|ntm|fdp|fils de pute|ta gueule|ferme ta gueule|va te faire|casse toi)\b`),
	regexp.MustCompile(`(?i)\b(fuck you|fuck off|stfu|gtfo|kys|kill yourself)\b`),
	regexp.MustCompile(`(?i)\b(nigga|nigger)\b`),
	regexp.MustCompile(`(?i)\b(porn|hentai|nsfw|xxx|dick pic|nudes)\b`),
	regexp.MustCompile(`(?i)\b(je vais te|i('ll| will)\s+(kill|murder|rape))\b`),
}

// LocalCategory applies the ordered rule table. The second result is
// false when no rule matches and the item is a candidate for the remote
// fallback.
//
// Rule order (first match wins):
//  1. attachment extension: image, then video, then file
//  2. command prefix on the trimmed body
//  3. http(s) link in the body: image or video extension, otherwise Links
//  4. personal information patterns
//  5. inappropriate content patterns
func LocalCategory(body string, attachments []string) (domain.Category, bool) {
	for _, u := range attachments {
		if c, ok := mediaCategory(u, true); ok {
			return c, true
		}
	}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", false
	}

	for _, p := range commandPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return domain.CategoryCommands, true
		}
	}

	if urls := urlPattern.FindAllString(body, -1); len(urls) > 0 {
		for _, u := range urls {
			if c, ok := mediaCategory(u, false); ok {
				return c, true
			}
		}
		return domain.CategoryLinks, true
	}

	for _, p := range personalInfoPatterns {
		if p.MatchString(body) {
			return domain.CategoryPersonalInfo, true
		}
	}

	for _, p := range inappropriatePatterns {
		if p.MatchString(body) {
			return domain.CategoryInappropriate, true
		}
	}

	return "", false
}

// mediaCategory matches a URL against the extension sets. Files are only
// considered for attachments; a link to a document is still a link.
func mediaCategory(url string, withFiles bool) (domain.Category, bool) {
	lower := strings.ToLower(url)
	if containsAny(lower, imageExtensions) {
		return domain.CategoryImages, true
	}
	if containsAny(lower, videoExtensions) {
		return domain.CategoryVideos, true
	}
	if withFiles && containsAny(lower, fileExtensions) {
		return domain.CategoryFiles, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
