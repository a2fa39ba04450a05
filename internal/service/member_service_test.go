package service

import (
	"context"
	"testing"
	"time"

	"vouchersystem/internal/semester"

	"github.com/stretchr/testify/require"
)

func TestRegisterSetsSemesterAndLifetime(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	members := NewMemberService(env.db)

	plain, err := members.Register(ctx, &RegisterMemberRequest{
		Name:      "普通成员",
		Email:     "plain@example.com",
		CreatedBy: "admin",
	})
	require.NoError(t, err)
	require.Equal(t, semester.Current(), plain.Semester)
	require.False(t, plain.Lifetime)
	require.Nil(t, plain.DateLifetime)

	life, err := members.Register(ctx, &RegisterMemberRequest{
		Name:      "终身成员",
		Email:     "life@example.com",
		Lifetime:  true,
		CreatedBy: "admin",
	})
	require.NoError(t, err)
	require.True(t, life.Lifetime)
	require.NotNil(t, life.DateLifetime)
}

func TestUpdateLifetimeFlagMaintainsTimestamp(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	members := NewMemberService(env.db)
	member := createMember(t, env, "2020-SPRING", false, false)

	// 置真：记录时间
	on := true
	updated, err := members.Update(ctx, &UpdateMemberRequest{
		MemberID: member.ID,
		Lifetime: &on,
		EditedBy: "editor",
	})
	require.NoError(t, err)
	require.True(t, updated.Lifetime)
	require.NotNil(t, updated.DateLifetime)
	require.Equal(t, "editor", updated.LastEditedBy)

	// 置假：清空时间
	off := false
	updated, err = members.Update(ctx, &UpdateMemberRequest{
		MemberID: member.ID,
		Lifetime: &off,
		EditedBy: "editor",
	})
	require.NoError(t, err)
	require.False(t, updated.Lifetime)
	require.Nil(t, updated.DateLifetime)

	// 未提交的字段不参与更新
	name := "改名"
	updated, err = members.Update(ctx, &UpdateMemberRequest{
		MemberID: member.ID,
		Name:     &name,
		EditedBy: "editor",
	})
	require.NoError(t, err)
	require.Equal(t, "改名", updated.Name)
	require.False(t, updated.Lifetime)
}

func TestIsActive(t *testing.T) {
	env := setupEnv(t)
	members := NewMemberService(env.db)

	at := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC) // 2024-AUTUMN

	cases := []struct {
		name     string
		semester string
		lifetime bool
		honorary bool
		want     bool
	}{
		{"当学期成员", "2024-AUTUMN", false, false, true},
		{"过期成员", "2023-SPRING", false, false, false},
		{"终身会员", "2020-SPRING", true, false, true},
		{"荣誉会员", "2020-SPRING", false, true, true},
	}

	for _, c := range cases {
		member := createMember(t, env, c.semester, c.lifetime, c.honorary)
		require.Equal(t, c.want, members.IsActive(member, at), c.name)
	}
}

func TestListActiveMembers(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	members := NewMemberService(env.db)
	createMember(t, env, semester.Current(), false, false)
	createMember(t, env, "2019-AUTUMN", true, false)
	createMember(t, env, "2019-AUTUMN", false, true)
	createMember(t, env, "2019-AUTUMN", false, false) // 不活跃

	list, total, err := members.ListActive(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, list, 3)
}
