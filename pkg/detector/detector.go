package detector

import (
	"net/url"
	"strings"
	"sync"

	"github.com/dtnitsch/web-audit/models"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"
)

// minLanguageRunes is the shortest text worth running detection on.
const minLanguageRunes = 40

var (
	languageDetector lingua.LanguageDetector
	detectorOnce     sync.Once
)

// detectedLanguages keeps the model set small; loading every language costs
// roughly a gigabyte of memory.
var detectedLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Swedish,
	lingua.Polish,
	lingua.Japanese,
}

func detector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectedLanguages...).
			WithLowAccuracyMode().
			Build()
	})
	return languageDetector
}

// DetectLanguage guesses the language of text. It returns nil when the text
// is too short or no language could be decided.
func DetectLanguage(text string) *models.Language {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minLanguageRunes {
		return nil
	}
	d := detector()
	language, exists := d.DetectLanguageOf(text)
	if !exists {
		return nil
	}
	return &models.Language{
		Code:       strings.ToLower(language.IsoCode639_1().String()),
		Confidence: d.ComputeLanguageConfidence(text, language),
	}
}

// Readability extracts article metadata. It returns nil if the page has none
// or readability cannot parse it.
func Readability(rawURL, html string) *models.Readability {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), parsedURL)
	if err != nil {
		return nil
	}

	r := &models.Readability{
		Excerpt:  strings.TrimSpace(article.Excerpt),
		SiteName: strings.TrimSpace(article.SiteName),
		Byline:   strings.TrimSpace(article.Byline),
	}
	if *r == (models.Readability{}) {
		return nil
	}
	return r
}
