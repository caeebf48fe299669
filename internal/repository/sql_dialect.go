package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// 商户常在 metadata 中携带的检索字段
var conversionMetadataSearchKeys = []string{"campaign", "sku", "coupon"}

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func jsonTextExprByDialect(dialect, column, key string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		// metadata 以 text 存储，先转 jsonb 再提取
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	default:
		return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
	}
}

// buildKeywordCondition 构建普通列 + JSON 列指定键的模糊匹配条件，并返回参数数量。
func buildKeywordCondition(db *gorm.DB, plainColumns []string, jsonColumn string, jsonKeys []string) (string, int) {
	return buildKeywordConditionByDialect(dbDialectName(db), plainColumns, jsonColumn, jsonKeys)
}

func buildKeywordConditionByDialect(dialect string, plainColumns []string, jsonColumn string, jsonKeys []string) (string, int) {
	parts := make([]string, 0, len(plainColumns)+len(jsonKeys))
	operator := likeOperatorByDialect(dialect)
	const escape = ` ESCAPE '\'`

	for _, column := range plainColumns {
		if trimmed := strings.TrimSpace(column); trimmed != "" {
			parts = append(parts, fmt.Sprintf("%s %s ?%s", trimmed, operator, escape))
		}
	}
	if column := strings.TrimSpace(jsonColumn); column != "" {
		for _, key := range jsonKeys {
			parts = append(parts, fmt.Sprintf("%s %s ?%s", jsonTextExprByDialect(dialect, column, key), operator, escape))
		}
	}
	return strings.Join(parts, " OR "), len(parts)
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// escapeLike 转义用户输入中的通配符
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// repeatLikeArgs 生成重复的 LIKE 参数列表。
func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, like)
	}
	return args
}
