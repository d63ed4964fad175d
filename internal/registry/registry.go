// Package registry 提供静态专家角色目录
package registry

import (
	"encoding/json"
	"fmt"

	"github.com/run-bigpig/ycp/internal/embed"
	"github.com/run-bigpig/ycp/internal/models"
)

// Registry 角色目录，进程内只加载一次，加载后不再变更
type Registry struct {
	profiles []models.RoleProfile
	index    map[models.RoleName]int
}

// Load 从嵌入数据加载角色目录
func Load() (*Registry, error) {
	return loadFrom(embed.RoleCatalogJSON)
}

// loadFrom 从 JSON 数据构建目录并校验
func loadFrom(data []byte) (*Registry, error) {
	var profiles []models.RoleProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse role catalog error: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("role catalog is empty")
	}

	index := make(map[models.RoleName]int, len(profiles))
	for i, p := range profiles {
		if p.Role == "" {
			return nil, fmt.Errorf("role catalog entry %d: missing role name", i)
		}
		if p.Description == "" {
			return nil, fmt.Errorf("role %s: missing description", p.Role)
		}
		if _, dup := index[p.Role]; dup {
			return nil, fmt.Errorf("role %s: duplicated in catalog", p.Role)
		}
		index[p.Role] = i
	}

	return &Registry{profiles: profiles, index: index}, nil
}

// Profiles 返回目录条目（目录顺序），返回副本避免外部篡改
func (r *Registry) Profiles() []models.RoleProfile {
	out := make([]models.RoleProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Roles 返回目录顺序的角色名列表
func (r *Registry) Roles() []models.RoleName {
	out := make([]models.RoleName, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = p.Role
	}
	return out
}

// Get 获取指定角色的目录条目
func (r *Registry) Get(role models.RoleName) (models.RoleProfile, bool) {
	i, ok := r.index[role]
	if !ok {
		return models.RoleProfile{}, false
	}
	return r.profiles[i], true
}

// Has 判断角色是否在目录中
func (r *Registry) Has(role models.RoleName) bool {
	_, ok := r.index[role]
	return ok
}

// Describe 获取角色描述，未知角色返回空串
func (r *Registry) Describe(role models.RoleName) string {
	if p, ok := r.Get(role); ok {
		return p.Description
	}
	return ""
}
