package embed

import (
	_ "embed"
)

// RoleCatalogJSON 嵌入的专家角色目录
// 编译时从 roles.json 嵌入到二进制文件中
//
//go:embed roles.json
var RoleCatalogJSON []byte
