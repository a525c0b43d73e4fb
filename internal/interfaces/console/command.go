package console

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Coordinator 命令行需要的协调器子集
type Coordinator interface {
	Toggle(id string) error
	ReconnectAll()
	Selection() []string
}

// CommandReader 从 stdin 读交互命令：
//
//	toggle <id>   增删一个追踪标的（如 toggle HLP:ETH）
//	reconnect     所有活跃组强制重连
//	list          打印当前选择集
type CommandReader struct {
	in   io.Reader
	coor Coordinator
}

func NewCommandReader(in io.Reader, coor Coordinator) *CommandReader {
	return &CommandReader{in: in, coor: coor}
}

// Run 阻塞读行直到 EOF 或 ctx 取消；stdin 不可中断读，靠 ctx 检查退出
func (c *CommandReader) Run(ctx context.Context) {
	sc := bufio.NewScanner(c.in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "toggle", "t":
			id := strings.TrimSpace(arg)
			if id == "" {
				log.Warn().Msg("usage: toggle <instrument-id>")
				continue
			}
			if err := c.coor.Toggle(id); err != nil {
				log.Warn().Str("id", id).Err(err).Msg("toggle rejected")
			}
		case "reconnect", "r":
			c.coor.ReconnectAll()
		case "list", "l":
			log.Info().Strs("selection", c.coor.Selection()).Msg("current selection")
		default:
			log.Warn().Str("cmd", cmd).Msg("unknown command (toggle/reconnect/list)")
		}
	}
}
