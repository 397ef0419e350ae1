// Package model 包含了应用的数据模型定义。
package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// DefaultMaxMessages 是新用户默认的提问上限。
const DefaultMaxMessages = 15

// 已知角色。
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var knownRoles = map[string]struct{}{
	RoleAdmin:  {},
	RoleViewer: {},
}

// User 对应数据库中的 Users 表。
type User struct {
	ID             uint    `gorm:"primaryKey;column:id" json:"id"`
	Username       string  `gorm:"type:varchar(255);uniqueIndex;not null;column:username" json:"username"`
	Email          string  `gorm:"type:varchar(255);column:email" json:"email"`
	FailedAttempts int     `gorm:"not null;default:0;column:failed_attempts" json:"failedAttempts"`
	LoggedIn       bool    `gorm:"not null;default:false;column:logged_in" json:"loggedIn"`
	Name           string  `gorm:"type:varchar(255);not null;column:name" json:"name"`
	PasswordHash   string  `gorm:"type:varchar(255);not null;column:password_hash" json:"-"`
	Roles          RoleSet `gorm:"type:varchar(255);not null;column:roles" json:"roles"`
	MaxMessages    int     `gorm:"default:15;column:max_messages" json:"maxMessages"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "Users"
}

// IsAdmin 判断用户是否具有管理员角色。
func (u *User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// RoleSet 是用户角色的集合，以 JSON 字符串数组的形式存储。
// 解码时只接受字符串数组，且每个角色都必须是已知角色。
type RoleSet []string

// ParseRoleSet 严格解析 JSON 角色数组，去重并排序。
func ParseRoleSet(data []byte) (RoleSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw []string
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("roles 必须是字符串数组: %w", err)
	}
	if dec.More() {
		return nil, errors.New("roles 末尾存在多余内容")
	}
	return NewRoleSet(raw...)
}

// NewRoleSet 校验并构造一个角色集合。
func NewRoleSet(roles ...string) (RoleSet, error) {
	seen := make(map[string]struct{}, len(roles))
	set := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if _, ok := knownRoles[r]; !ok {
			return nil, fmt.Errorf("未知角色: %q", r)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		set = append(set, r)
	}
	sort.Strings(set)
	return set, nil
}

// Has 判断集合中是否包含指定角色。
func (s RoleSet) Has(role string) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Value 实现 driver.Valuer。
func (s RoleSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (s *RoleSet) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = RoleSet{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 解析为 RoleSet", src)
	}
	parsed, err := ParseRoleSet(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
