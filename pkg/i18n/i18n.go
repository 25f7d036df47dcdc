// Package i18n はロケールごとの翻訳カタログを読み込み、翻訳キーを表示テキストに変換する。
//
// カタログは locales/<locale>.json にキーとテキストの平坦なJSONとして埋め込まれ、
// golang.org/x/text/message のカタログに登録される。
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// BaseLocale はフォールバック先となる基準ロケール。
const BaseLocale = "en"

// RequiredKeys はすべてのロケールで定義されている必要がある翻訳キー。
var RequiredKeys = []string{"session"}

//go:embed locales/*.json
var embeddedLocales embed.FS

// Bundle は読み込み済みのロケールカタログの集合。
type Bundle struct {
	// builder はx/textのメッセージカタログ。
	builder *catalog.Builder
	// tags は対応ロケール。先頭は基準ロケール。
	tags []language.Tag
	// matcher は希望言語と対応ロケールの照合を行う。
	matcher language.Matcher
	// messages はロケールごとの翻訳テキスト。
	messages map[language.Tag]map[string]string
	// base は基準ロケール。
	base language.Tag
}

// Load は埋め込みのカタログを読み込む。
func Load() (*Bundle, error) {
	return LoadFromFS(embeddedLocales, "locales")
}

// LoadFromFS は指定ディレクトリの <locale>.json を読み込む。
func LoadFromFS(fsys fs.FS, dir string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("カタログファイルの検索に失敗: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("カタログファイルが見つかりません: %s", dir)
	}
	sort.Strings(paths)

	base := language.Make(BaseLocale)
	b := &Bundle{
		builder:  catalog.NewBuilder(catalog.Fallback(base)),
		messages: make(map[language.Tag]map[string]string, len(paths)),
		base:     base,
	}

	for _, p := range paths {
		locale := strings.TrimSuffix(path.Base(p), ".json")
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("ロケール名 %q の解析に失敗: %w", locale, err)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("カタログ %s の読み込みに失敗: %w", p, err)
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("カタログ %s の解析に失敗: %w", p, err)
		}

		for _, key := range RequiredKeys {
			if strings.TrimSpace(entries[key]) == "" {
				return nil, fmt.Errorf("カタログ %s に必須キー %q がありません", p, key)
			}
		}

		for key, text := range entries {
			if err := b.builder.SetString(tag, key, escapeVerbs(text)); err != nil {
				return nil, fmt.Errorf("カタログ %s のキー %q の登録に失敗: %w", p, key, err)
			}
		}
		b.messages[tag] = entries
		b.tags = append(b.tags, tag)
	}

	if _, ok := b.messages[base]; !ok {
		return nil, fmt.Errorf("基準ロケール %s のカタログがありません", BaseLocale)
	}

	// Matcherは先頭のタグを既定値として扱う
	sort.SliceStable(b.tags, func(i, j int) bool {
		return b.tags[i] == base && b.tags[j] != base
	})
	b.matcher = language.NewMatcher(b.tags)

	return b, nil
}

// Supported は対応ロケールを返す。先頭は基準ロケール。
func (b *Bundle) Supported() []language.Tag {
	out := make([]language.Tag, len(b.tags))
	copy(out, b.tags)
	return out
}

// Match は言語タグまたはAccept-Language形式の文字列から対応ロケールを選ぶ。
// 対応するものが無い場合は基準ロケールを返す。
func (b *Bundle) Match(preference string) language.Tag {
	tag, ok := b.match(preference, language.Low)
	if !ok {
		return b.base
	}
	return tag
}

// Supports は言語指定が対応ロケールのいずれかに十分一致する場合にそのロケールを返す。
// 利用者が明示的に言語を切り替える際の検証に使う。
func (b *Bundle) Supports(lang string) (language.Tag, bool) {
	return b.match(lang, language.High)
}

func (b *Bundle) match(preference string, min language.Confidence) (language.Tag, bool) {
	preference = strings.TrimSpace(preference)
	if preference == "" {
		return language.Und, false
	}
	wanted, _, err := language.ParseAcceptLanguage(preference)
	if err != nil || len(wanted) == 0 {
		return language.Und, false
	}
	_, idx, conf := b.matcher.Match(wanted...)
	if conf < min {
		return language.Und, false
	}
	return b.tags[idx], true
}

// Localize は翻訳キーを指定ロケールのテキストに変換する。
// ロケールにキーが無ければ基準ロケールのテキスト、それも無ければキーをそのまま返す。
func (b *Bundle) Localize(tag language.Tag, key string) string {
	fallback, ok := b.messages[b.base][key]
	if !ok {
		fallback = key
	}
	if _, ok := b.messages[tag]; !ok {
		tag = b.base
	}
	p := message.NewPrinter(tag, message.Catalog(b.builder))
	return p.Sprintf(message.Key(key, escapeVerbs(fallback)))
}

// escapeVerbs はテキスト中の%を書式指定として解釈させないためにエスケープする。
// カタログのテキストは引数を取らない固定文言として扱う。
func escapeVerbs(text string) string {
	return strings.ReplaceAll(text, "%", "%%")
}

// Localizer は指定ロケールに固定した変換関数を返す。
func (b *Bundle) Localizer(tag language.Tag) func(key string) string {
	return func(key string) string {
		return b.Localize(tag, key)
	}
}
