package airtable

import "strings"

// Quote は文字列を Airtable の数式リテラルにする。
// シングルクォートとバックスラッシュはエスケープする。
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// FieldEquals は {field}='value' 形式の filterByFormula を返す
func FieldEquals(field, value string) string {
	return "{" + field + "}=" + Quote(value)
}
