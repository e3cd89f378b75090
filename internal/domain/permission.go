package domain

// Permission is a 64-bit capability bitmask resolved per member per guild.
type Permission int64

const (
	PermSendMessage Permission = 1 << iota
	PermCreateChannel
	PermDeleteChannel
	PermManageChannel
	PermCreateRole
	PermDeleteRole
	PermManageRole
	PermCreateInvite
	PermManageInvite
	PermManageGuild
	PermManageMember
	PermBanMember
	PermKickMember
)

// PermAll is what guild owners resolve to.
const PermAll = PermSendMessage | PermCreateChannel | PermDeleteChannel |
	PermManageChannel | PermCreateRole | PermDeleteRole | PermManageRole |
	PermCreateInvite | PermManageInvite | PermManageGuild | PermManageMember |
	PermBanMember | PermKickMember

func (p Permission) Has(bit Permission) bool { return p&bit == bit }
