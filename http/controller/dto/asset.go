package dto

type UpdateAssetRequestDTO struct {
	Tags        *string `json:"tags" binding:"omitempty,max=512"`
	Description *string `json:"description" binding:"omitempty,max=2048"`
}

type ChangeRoleRequestDTO struct {
	Role string `json:"role" binding:"required"`
}

type ListAssetsQueryDTO struct {
	Scope string `form:"scope"`
	Type  string `form:"type"`
}
