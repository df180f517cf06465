package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID        int64
	Email     string
	Name      string
	Role      Role
	LootCoins int64
	CreatedAt time.Time
}
