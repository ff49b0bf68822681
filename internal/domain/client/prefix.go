package client

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// FallbackPrefix 公司名称无法推导时使用的前缀
	FallbackPrefix = "CLI"

	// MinPrefixLength / MaxPrefixLength 手工前缀长度范围
	MinPrefixLength = 2
	MaxPrefixLength = 10

	baseWordCount = 3
)

var prefixPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// 前缀格式校验失败的提示信息(按校验顺序)
const (
	msgPrefixRequired = "prefix is required"
	msgPrefixTooShort = "must be at least 2 characters"
	msgPrefixTooLong  = "must be at most 10 characters"
	msgPrefixCharset  = "must contain only uppercase letters and numbers"
)

// DeriveBasePrefix 根据公司名称推导基础前缀
// 规则:
// 1. 去掉所有非ASCII字母、非空白字符(数字、标点、重音字母都会被去掉)
// 2. 按空白切分单词
// 3. >=3个单词:取前3个单词的首字母
// 4. 1-2个单词:拼接后取前3个字符
// 5. 无法推导时返回"CLI"
//
// 示例:"IT Piezas Industriales" → "IPI","Acme" → "ACM"
// 结果1-3个字符,不保证唯一
func DeriveBasePrefix(companyName string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isASCIILetter(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, companyName)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return FallbackPrefix
	}

	var prefix string
	if len(words) >= baseWordCount {
		var b strings.Builder
		for _, w := range words[:baseWordCount] {
			b.WriteByte(w[0])
		}
		prefix = b.String()
	} else {
		prefix = strings.Join(words, "")
		if len(prefix) > baseWordCount {
			prefix = prefix[:baseWordCount]
		}
	}

	prefix = strings.ToUpper(prefix)
	if prefix == "" {
		return FallbackPrefix
	}
	return prefix
}

// NormalizePrefix 去空白并转大写
func NormalizePrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}

// PrefixValidation 手工前缀格式校验结果
type PrefixValidation struct {
	Valid  bool   `json:"valid"`
	Prefix string `json:"prefix"`          // 规范化后的前缀
	Error  string `json:"error,omitempty"` // 第一条不满足的规则
}

// ValidatePrefixFormat 校验手工输入的前缀格式
// 规则按顺序检查,第一条失败即返回:
// 1. 不能为空
// 2. 去空白转大写后至少2个字符
// 3. 最多10个字符
// 4. 只能包含大写字母和数字
//
// 只校验格式,不检查可用性;编辑时排除自身前缀由调用方负责
func ValidatePrefixFormat(candidate string) PrefixValidation {
	if candidate == "" {
		return PrefixValidation{Error: msgPrefixRequired}
	}

	normalized := NormalizePrefix(candidate)
	result := PrefixValidation{Prefix: normalized}

	switch n := utf8.RuneCountInString(normalized); {
	case n < MinPrefixLength:
		result.Error = msgPrefixTooShort
	case n > MaxPrefixLength:
		result.Error = msgPrefixTooLong
	case !prefixPattern.MatchString(normalized):
		result.Error = msgPrefixCharset
	default:
		result.Valid = true
	}
	return result
}

// CheckPrefixFormat 校验并返回规范化前缀
// 校验失败返回带具体原因的ErrInvalidPrefixFormat
func CheckPrefixFormat(candidate string) (string, error) {
	v := ValidatePrefixFormat(candidate)
	if !v.Valid {
		return "", ErrInvalidPrefixFormat.WithMessage(v.Error)
	}
	return v.Prefix, nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
