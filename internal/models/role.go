package models

// RoleName 专家角色名称（封闭枚举，与内置目录一一对应）
type RoleName string

// 内置角色常量
const (
	RoleNewsfeed      RoleName = "Newsfeed"
	RoleSocialMedia   RoleName = "Social Media"
	RoleReddit        RoleName = "Reddit"
	RoleFinance       RoleName = "Finance"
	RoleMacro         RoleName = "Macro"
	RoleEntertainment RoleName = "Entertainment"
)

// String 实现 fmt.Stringer
func (r RoleName) String() string {
	return string(r)
}

// RoleProfile 角色目录条目
// Icon/Color 为前端展示元数据，核心管线只消费 Role 与 Description
type RoleProfile struct {
	Role        RoleName `json:"role"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
}
