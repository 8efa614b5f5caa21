package common

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeMap 以 JSON 文本格式存储 key → 时间戳 映射。
type TimeMap map[string]time.Time

// Value 实现 driver.Valuer 接口。
func (m TimeMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]time.Time(m))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口。
func (m *TimeMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*m = TimeMap{}
			return nil
		}
		return json.Unmarshal(v, (*map[string]time.Time)(m))
	case string:
		if v == "" {
			*m = TimeMap{}
			return nil
		}
		return json.Unmarshal([]byte(v), (*map[string]time.Time)(m))
	default:
		return fmt.Errorf("unsupported type for TimeMap: %T", value)
	}
}

// Has 检查映射中是否已有给定 key。
func (m TimeMap) Has(key string) bool {
	if len(m) == 0 {
		return false
	}
	_, ok := m[key]
	return ok
}

// Meta 包含分页元数据。
type Meta struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"page_size"`
	Total    int64 `json:"total"`
}

// BaseParams 包含通用的分页参数。
type BaseParams struct {
	PageSize int64 `json:"page_size" form:"page_size" query:"page_size"`
	Page     int64 `json:"page" form:"page" query:"page"`
}
