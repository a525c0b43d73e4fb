package domain

import "errors"

// 选择集约束：始终保持 1..max 个标的
var (
	ErrSelectionLimit    = errors.New("selection limit exceeded")
	ErrLastSelection     = errors.New("cannot remove the last selected instrument")
	ErrUnknownInstrument = errors.New("unknown instrument id")
)

const DefaultSelectionMax = 3

// Selection 用户追踪的有序标的集合
// 纯规则对象：持久化与连接联动由 coordinator 负责
type Selection struct {
	ids       []string
	max       int
	defaultID string
}

func NewSelection(ids []string, max int, defaultID string) *Selection {
	if max <= 0 {
		max = DefaultSelectionMax
	}
	s := &Selection{max: max, defaultID: defaultID}
	seen := map[string]struct{}{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s.ids = append(s.ids, id)
		if len(s.ids) == max {
			break
		}
	}
	if len(s.ids) == 0 && defaultID != "" {
		s.ids = []string{defaultID}
	}
	return s
}

// IDs 返回成员副本（保持加入顺序）
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle 加入或移除一个 id
// 移除最后一个成员被拒绝（集合永不为空），加满 max 个后再加被拒绝
func (s *Selection) Toggle(id string) (added bool, err error) {
	if s.Has(id) {
		if len(s.ids) == 1 {
			return false, ErrLastSelection
		}
		out := s.ids[:0]
		for _, v := range s.ids {
			if v != id {
				out = append(out, v)
			}
		}
		s.ids = out
		return false, nil
	}
	if len(s.ids) >= s.max {
		return false, ErrSelectionLimit
	}
	s.ids = append(s.ids, id)
	return true, nil
}

// Validate 目录全部加载后过滤失效 id
// 过滤后为空时回退到默认 id（前提是默认 id 在某个目录里存在）
// 返回集合是否发生了变化（变化时调用方需要重新持久化）
func (s *Selection) Validate(known func(id string) bool) (changed bool) {
	out := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if known(id) {
			out = append(out, id)
		}
	}
	if len(out) == len(s.ids) {
		return false
	}
	s.ids = out
	if len(s.ids) == 0 && s.defaultID != "" && known(s.defaultID) {
		s.ids = []string{s.defaultID}
	}
	return true
}
