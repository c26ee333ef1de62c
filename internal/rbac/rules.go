package rbac

const (
	PermTestCreate    = "test:create"
	PermTestManageOwn = "test:manage_own"
	PermTestManageAny = "test:manage_any"
	PermQuestionWrite = "question:write"
	PermQuestionRead  = "question:read"
	PermUploadCreate  = "upload:create"
	PermAIGenerate    = "ai:generate"
)

// Default policy. Tutors work on their own tests; admins on any.
var RolePermissions = map[string][]string{
	"tutor": {
		PermTestCreate,
		PermTestManageOwn,
		"question:*",
		PermUploadCreate,
		PermAIGenerate,
	},
	"admin": {
		"*",
	},
}
