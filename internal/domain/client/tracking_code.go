package client

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SequenceWidth 序号最少补零位数,超过99999后位数自然增长
const SequenceWidth = 5

var sequencePattern = regexp.MustCompile(`^[0-9]+$`)

// FormatTrackingCode 生成追踪号
// 格式:{prefix}-{序号补零到5位},如"ITP-00001"
func FormatTrackingCode(prefix string, sequence int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, SequenceWidth, sequence)
}

// IssuedCode 一次签发的前缀与序号
type IssuedCode struct {
	Prefix   string
	Sequence int64
}

// Code 渲染为追踪号
func (c IssuedCode) Code() string {
	return FormatTrackingCode(c.Prefix, c.Sequence)
}

// ParseTrackingCode 解析追踪号为(前缀,序号)
func ParseTrackingCode(code string) (string, int64, error) {
	code = strings.TrimSpace(code)
	idx := strings.LastIndexByte(code, '-')
	if idx <= 0 || idx == len(code)-1 {
		return "", 0, ErrInvalidTrackingCode
	}

	prefix, digits := strings.ToUpper(code[:idx]), code[idx+1:]
	if !prefixPattern.MatchString(prefix) || len(digits) < SequenceWidth || !sequencePattern.MatchString(digits) {
		return "", 0, ErrInvalidTrackingCode
	}

	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seq <= 0 {
		return "", 0, ErrInvalidTrackingCode
	}
	return prefix, seq, nil
}
