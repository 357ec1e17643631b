package preview

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

type Category string

const (
	CategoryImage       Category = "image"
	CategoryDocument    Category = "document"
	CategoryPDF         Category = "pdf"
	CategorySpreadsheet Category = "spreadsheet"
	CategoryVideo       Category = "video"
	CategoryAudio       Category = "audio"
	CategoryArchive     Category = "archive"
	CategoryCode        Category = "code"
	CategoryOther       Category = "other"
)

var defaultExtensions = map[Category][]string{
	CategoryImage:       {".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"},
	CategoryDocument:    {".doc", ".docx", ".txt", ".rtf", ".odt"},
	CategoryPDF:         {".pdf"},
	CategorySpreadsheet: {".xls", ".xlsx", ".csv"},
	CategoryVideo:       {".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv"},
	CategoryAudio:       {".mp3", ".wav", ".ogg", ".m4a", ".flac"},
	CategoryArchive:     {".zip", ".rar", ".7z", ".tar", ".gz"},
	CategoryCode:        {".py", ".js", ".html", ".css", ".java", ".php", ".go"},
}

// builtin order decides which category wins when an extension is listed twice.
var builtinOrder = []Category{
	CategoryImage,
	CategoryDocument,
	CategoryPDF,
	CategorySpreadsheet,
	CategoryVideo,
	CategoryAudio,
	CategoryArchive,
	CategoryCode,
}

type Classifier struct {
	byExt map[string]Category
}

// NewClassifier builds the extension table. An entry in overrides replaces
// the built-in list of that category; unknown category names add new ones.
func NewClassifier(overrides map[string][]string) *Classifier {
	lists := make(map[Category][]string, len(defaultExtensions)+len(overrides))
	for c, exts := range defaultExtensions {
		lists[c] = exts
	}

	order := append([]Category(nil), builtinOrder...)
	extra := make([]string, 0, len(overrides))
	for name, exts := range overrides {
		c := Category(strings.ToLower(strings.TrimSpace(name)))
		if c == "" || c == CategoryOther {
			continue
		}
		if _, known := defaultExtensions[c]; !known {
			extra = append(extra, string(c))
		}
		lists[c] = exts
	}
	sort.Strings(extra)
	order = append(order, lo.Map(extra, func(s string, _ int) Category { return Category(s) })...)

	byExt := make(map[string]Category)
	for _, c := range order {
		for _, ext := range lo.Uniq(lo.Map(lists[c], func(e string, _ int) string { return normalizeExt(e) })) {
			if ext == "" {
				continue
			}
			if _, taken := byExt[ext]; !taken {
				byExt[ext] = c
			}
		}
	}
	return &Classifier{byExt: byExt}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (c *Classifier) Classify(filename string) Category {
	if cat, ok := c.byExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return cat
	}
	return CategoryOther
}

// iconName maps a category to the icon asset that represents it.
func (c Category) iconName() string {
	if c == CategoryOther || c == "" {
		return fallbackIcon
	}
	return string(c)
}
