package stats

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"sentinel-panel/internal/session"
)

var ErrNotReady = errors.New("stats: bot is not ready")

const (
	permAdministrator int64 = 0x8
	permManageGuild   int64 = 0x20
)

type Guild struct {
	ID          string
	Name        string
	Icon        string
	OwnerID     string
	MemberCount int
}

// Source exposes the live bot state the dashboard reports on.
type Source interface {
	Ready() bool
	Guilds() []Guild
	Uptime() time.Duration
	Latency() time.Duration
}

type CommandCounter interface {
	Len() int
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	source    Source
	commands  CommandCounter
	clock     Clock
	startedAt time.Time
}

func New(source Source, commands CommandCounter) *Service {
	return &Service{source: source, commands: commands, clock: realClock{}, startedAt: time.Now()}
}

func (s *Service) WithClock(clock Clock) {
	s.clock = clock
	s.startedAt = clock.Now()
}

type Report struct {
	Guilds      int    `json:"guilds"`
	Users       int    `json:"users"`
	Commands    int    `json:"commands"`
	Uptime      string `json:"uptime"`
	Ping        int64  `json:"ping"`
	MemoryMB    uint64 `json:"memory"`
	LastRestart string `json:"lastRestart"`
	TotalGuilds int    `json:"totalGuilds"`
	TotalUsers  int    `json:"totalUsers"`
}

type GuildView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MemberCount     int    `json:"memberCount"`
	Icon            string `json:"icon,omitempty"`
	Owner           string `json:"owner"`
	UserPermissions string `json:"userPermissions"`
	UserIsOwner     bool   `json:"userIsOwner"`
	UserCanManage   bool   `json:"userCanManage"`
}

type Health struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

// Report summarises the bot, scoping guild and user counts to the guilds the
// caller belongs to.
func (s *Service) Report(userGuilds []session.Guild) (Report, error) {
	if s.source == nil || !s.source.Ready() {
		return Report{}, ErrNotReady
	}
	member := guildSet(userGuilds)
	uptime := s.source.Uptime()

	report := Report{
		Uptime:      FormatUptime(uptime),
		Ping:        s.source.Latency().Milliseconds(),
		MemoryMB:    heapMB(),
		LastRestart: s.clock.Now().Add(-uptime).UTC().Format(time.RFC3339),
	}
	if s.commands != nil {
		report.Commands = s.commands.Len()
	}
	for _, guild := range s.source.Guilds() {
		report.TotalGuilds++
		report.TotalUsers += guild.MemberCount
		if _, ok := member[guild.ID]; ok {
			report.Guilds++
			report.Users += guild.MemberCount
		}
	}
	return report, nil
}

// Guilds lists the bot's guilds that the caller is also in, annotated with the
// caller's permission flags.
func (s *Service) Guilds(userGuilds []session.Guild) ([]GuildView, error) {
	if s.source == nil || !s.source.Ready() {
		return nil, ErrNotReady
	}
	byID := make(map[string]session.Guild, len(userGuilds))
	for _, guild := range userGuilds {
		byID[guild.ID] = guild
	}

	out := []GuildView{}
	for _, guild := range s.source.Guilds() {
		userGuild, ok := byID[guild.ID]
		if !ok {
			continue
		}
		out = append(out, GuildView{
			ID:              guild.ID,
			Name:            guild.Name,
			MemberCount:     guild.MemberCount,
			Icon:            iconURL(guild.ID, guild.Icon),
			Owner:           guild.OwnerID,
			UserPermissions: fmt.Sprint(userGuild.Permissions),
			UserIsOwner:     userGuild.Permissions&permAdministrator == permAdministrator,
			UserCanManage:   userGuild.Permissions&permManageGuild == permManageGuild,
		})
	}
	return out, nil
}

func (s *Service) Ready() bool {
	return s.source != nil && s.source.Ready()
}

func (s *Service) Health() Health {
	status := "offline"
	if s.Ready() {
		status = "online"
	}
	now := s.clock.Now()
	return Health{
		Status:    status,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(s.startedAt).Seconds(),
	}
}

// FormatUptime renders d as "1d 2h 3m", omitting zero days and hours.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	fmt.Fprintf(&b, "%dm", minutes)
	return b.String()
}

func guildSet(guilds []session.Guild) map[string]struct{} {
	set := make(map[string]struct{}, len(guilds))
	for _, guild := range guilds {
		set[guild.ID] = struct{}{}
	}
	return set
}

func iconURL(guildID, icon string) string {
	if icon == "" {
		return ""
	}
	ext := "png"
	if strings.HasPrefix(icon, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.%s", guildID, icon, ext)
}

func heapMB() uint64 {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return (mem.HeapAlloc + (1 << 19)) >> 20
}
