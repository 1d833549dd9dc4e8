// Package rules holds the heuristic keyword and domain lists the filter,
// scorer, and image resolver run on. The lists are data, not code: they
// ship with compiled-in defaults and can be replaced wholesale from a
// YAML file so curation never requires a rebuild.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category pairs a category label with the keywords that select it.
// Order in Rules.Categories is significant: first match wins.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Rules bundles every heuristic list the pipeline consults.
type Rules struct {
	// Fetcher lists
	SearchOrTerms []string `yaml:"search_or_terms"`

	// Filter lists
	ExcludeKeywords []string   `yaml:"exclude_keywords"`
	UsefulKeywords  []string   `yaml:"useful_keywords"`
	Categories      []Category `yaml:"categories"`
	TrustedDomains  []string   `yaml:"trusted_domains"`

	// Scorer lists
	RarityHighKeywords   []string `yaml:"rarity_high_keywords"`
	RarityMedKeywords    []string `yaml:"rarity_med_keywords"`
	TrustHighDomains     []string `yaml:"trust_high_domains"`
	TrustMedDomains      []string `yaml:"trust_med_domains"`
	OfficialAccountTerms []string `yaml:"official_account_terms"`

	// Image resolution lists
	ProviderDomains []string `yaml:"provider_domains"`
	ImageDenyTerms  []string `yaml:"image_deny_terms"`
	ImageExtensions []string `yaml:"image_extensions"`
	ImageHostHints  []string `yaml:"image_host_hints"`
}

// Default returns the built-in rule set. The lists mirror the curated
// production data: Japanese merchandise terms plus their common latin
// spellings so mixed-language feed results still match.
func Default() *Rules {
	return &Rules{
		SearchOrTerms: []string{
			"グッズ", "コラボ", "一番くじ", "カフェ", "ポップアップ", "予約", "アニメ", "フィギュア",
		},
		ExcludeKeywords: []string{
			"メルカリ", "ラクマ", "フリマ", "ヤフオク", "転売", "出品中", "売ります",
			"買います", "欲しい", "誕生日", "個人的に", "感想",
			"selling", "want to buy", "marketplace", "resale",
		},
		UsefulKeywords: []string{
			"予約", "発売", "コラボ", "開催", "グッズ", "受注", "限定", "発表",
			"一番くじ", "コラボカフェ", "フェア", "キャンペーン", "イベント", "展示",
			"フィギュア", "アクスタ", "popup", "ポップアップ",
			"reservation", "release", "collab", "limited", "merch", "goods",
			"lottery", "cafe", "campaign", "exhibition", "figure", "pop-up",
			"pre-order", "event",
		},
		Categories: []Category{
			{Name: "lottery", Keywords: []string{"一番くじ", "ichibankuji", "ichiban kuji", "lottery"}},
			{Name: "collab_cafe", Keywords: []string{"コラボカフェ", "collab cafe", "コラボ喫茶", "期間限定カフェ"}},
			{Name: "merchandise", Keywords: []string{
				"グッズ", "フィギュア", "アクスタ", "缶バッジ", "クリアファイル",
				"キーホルダー", "ぬいぐるみ", "タペストリー", "アパレル",
				"figure", "merch", "goods", "plush", "keychain",
			}},
			{Name: "collab", Keywords: []string{"コラボ", "collaboration", "コラボレーション", "フェア", "collab"}},
			{Name: "reservation", Keywords: []string{"予約", "受注", "先行", "予約開始", "予約受付", "pre-order", "reservation"}},
			{Name: "event", Keywords: []string{"イベント", "展示", "原画展", "pop.up", "popup", "ポップアップ", "pop-up", "exhibition", "event"}},
		},
		TrustedDomains: []string{
			"animate.co.jp", "gamers.co.jp", "jump.shueisha.co.jp",
			"natalie.mu", "ichibankuji.com", "lawson.co.jp",
			"bandaispirits.co.jp", "akibaoo.co.jp", "aniplex.co.jp",
			"collab-cafe.com", "ponycanyon.co.jp", "ufotablecinema.com",
			"nikkansports.com", "animatetimes.com", "nijigenfes.jp",
		},
		RarityHighKeywords: []string{
			"限定", "数量限定", "受注生産", "完全受注", "一番くじ", "抽選",
			"先着", "初回限定", "特典", "シリアル", "ナンバリング", "プレミアム",
			"コレクターズ", "レア", "exclusive", "limited", "pre-order",
			"lottery", "serial", "collector",
		},
		RarityMedKeywords: []string{
			"受注", "予約", "先行", "コラボ", "期間限定", "店舗限定",
			"オンライン限定", "会場限定", "フェア",
			"reservation", "collab", "store-only", "fair",
		},
		TrustHighDomains: []string{
			"animate.co.jp", "ichibankuji.com", "bandaispirits.co.jp",
			"aniplex.co.jp", "jump.shueisha.co.jp", "natalie.mu",
			"animatetimes.com", "prtimes.jp", "famitsu.com",
			"nijigenfes.jp", "collab-cafe.com", "lawson.co.jp",
		},
		TrustMedDomains: []string{
			"gamers.co.jp", "akibaoo.co.jp", "xlarge.jp",
			"horipro-stage.jp", "ufotablecinema.com",
		},
		OfficialAccountTerms: []string{
			"公式", "official", "アニメイト", "ナタリー", "jump", "aniplex",
			"bandai", "バンダイ", "lawson", "ローソン", "animate",
		},
		ProviderDomains: []string{
			"news.google.com", "google.com", "googleusercontent.com", "gstatic.com",
		},
		ImageDenyTerms: []string{
			"google", "gstatic", "doubleclick", "adsystem",
			"blank", "spacer", "pixel", "1x1", "icon",
			"favicon", "logo", "avatar", "gravatar",
		},
		ImageExtensions: []string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
		ImageHostHints: []string{
			"images.", "img.", "cdn.", "media.", "assets.",
			"photo", "image", "pics", "static",
		},
	}
}

// Load reads a YAML rules file. Lists present in the file replace the
// corresponding defaults; absent lists keep their built-in values.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	r := Default()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return r, nil
}
