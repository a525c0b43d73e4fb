package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/domain"
	"watchbar/internal/infrastructure/svc"
)

type Deps struct {
	Catalogs []port.CatalogSource
	Sources  []port.StreamSource
	Dialer   port.Dialer
	Repo     port.Repository
	Sink     port.Sink

	SelectionMax int
	DefaultID    string

	ReconnectCooldown time.Duration
	HealthEvery       time.Duration
	StaleAfter        time.Duration
	SnapshotEvery     time.Duration
	RolloverBuffer    time.Duration // UTC 零点后的缓冲
}

// Service 多源行情协调器
// 持有：每组一台连接状态机、每个 provider 一份目录、一个合并价格视图、一个选择集
// 共享状态全部串在 mu 后面；supervisor 的解码回调经 applyUpdate 进入同一边界，
// 因此 "单标的单写者" 在并发 runtime 下依然成立
type Service struct {
	deps Deps

	mu        sync.Mutex
	store     *domain.PriceStore
	sel       *domain.Selection
	catalogs  map[domain.Provider]*domain.Catalog
	loaded    map[domain.Provider]bool
	enabled   map[domain.Provider]bool
	validated bool
	sups      map[string]*Supervisor

	fmtr      *Formatter
	refreshCh chan struct{}
}

func NewService(deps Deps) *Service {
	s := &Service{
		deps:      deps,
		store:     domain.NewPriceStore(),
		catalogs:  make(map[domain.Provider]*domain.Catalog),
		loaded:    make(map[domain.Provider]bool),
		enabled:   make(map[domain.Provider]bool),
		sups:      make(map[string]*Supervisor),
		fmtr:      NewFormatter(),
		refreshCh: make(chan struct{}, 1),
	}
	for _, c := range deps.Catalogs {
		p := c.Provider()
		s.enabled[p] = true
		s.catalogs[p] = domain.NewCatalog(p)
	}
	return s
}

// Run 启动目录加载、定时器与渲染循环，阻塞到 ctx 取消
func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Sources) == 0 {
		return svc.ErrNoFeedsEnabled
	}

	// 持久化的选择集先于目录恢复；目录齐了再校验
	ids, err := s.deps.Repo.LoadSelection(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load selection failed, using default")
	}
	s.mu.Lock()
	s.sel = domain.NewSelection(ids, s.deps.SelectionMax, s.deps.DefaultID)
	for _, src := range s.deps.Sources {
		sup := NewSupervisor(ctx, src, s.deps.Dialer, s.deps.ReconnectCooldown, s.applyUpdate, s.requestRefresh)
		s.sups[src.Name()] = sup
	}
	s.mu.Unlock()

	log.Info().Strs("selection", s.Selection()).Int("catalogs", len(s.deps.Catalogs)).
		Int("feeds", len(s.deps.Sources)).Msg("coordinator started")

	// 目录加载互相独立，fire-and-forget；gate 在每个完成点推进
	for _, c := range s.deps.Catalogs {
		go s.loadCatalog(ctx, c)
	}

	healthTicker := time.NewTicker(s.deps.HealthEvery)
	defer healthTicker.Stop()
	snapTicker := time.NewTicker(s.deps.SnapshotEvery)
	defer snapTicker.Stop()
	rollover := time.NewTimer(untilNextRollover(time.Now(), s.deps.RolloverBuffer))
	defer rollover.Stop()

	_ = s.deps.Sink.WriteLive(s.renderLine())

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case <-s.refreshCh:
			_ = s.deps.Sink.WriteLive(s.renderLine())

		case now := <-snapTicker.C:
			line := s.renderLine()
			_ = s.deps.Sink.WriteSnapshot(now, line)
			_ = s.deps.Repo.InsertSnapshot(ctx, now.UnixMilli(), line)

		case <-healthTicker.C:
			s.healthCheck()

		case <-rollover.C:
			// 每日滚动：刷新 Hyperliquid 系两个目录的基准参考价
			s.reloadBaselines(ctx)
			rollover.Reset(untilNextRollover(time.Now(), s.deps.RolloverBuffer))
		}
	}
}

func (s *Service) shutdown() {
	s.mu.Lock()
	sups := make([]*Supervisor, 0, len(s.sups))
	for _, sup := range s.sups {
		sups = append(sups, sup)
	}
	s.mu.Unlock()
	for _, sup := range sups {
		sup.Stop()
	}
}

// untilNextRollover 距下一个 UTC 零点 + 缓冲的时长
func untilNextRollover(now time.Time, buffer time.Duration) time.Duration {
	utc := now.UTC()
	next := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour).Add(buffer)
	return next.Sub(utc)
}

func (s *Service) reloadBaselines(ctx context.Context) {
	for _, c := range s.deps.Catalogs {
		switch c.Provider() {
		case domain.ProviderHyperliquidPerp, domain.ProviderHyperliquidSpot:
			go s.loadCatalog(ctx, c)
		}
	}
}

// loadCatalog 一次目录拉取 + readiness gate 推进
// 失败不清旧目录、不阻塞 readiness：不可达的 provider 带零个或陈旧标的继续跑
func (s *Service) loadCatalog(ctx context.Context, src port.CatalogSource) {
	p := src.Provider()
	items, err := src.Load(ctx)

	s.mu.Lock()
	if err != nil {
		log.Warn().Str("catalog", p.String()).Err(err).Msgf("%v, keeping previous set", svc.ErrCatalogFetch)
	} else {
		s.catalogs[p].Replace(items)
		for _, it := range items {
			s.store.Seed(it)
		}
		log.Info().Str("catalog", p.String()).Int("instruments", len(items)).Msg("catalog loaded")
	}
	s.loaded[p] = true
	s.advanceGateLocked()
	s.mu.Unlock()

	s.requestRefresh()
}

// advanceGateLocked 两段式 readiness gate：
//  1. 全部目录就绪后做一次选择集校验，然后放行所有组
//  2. 未全就绪时，单目录组只等自己的 flag；双目录组（hyper）必须等两个
//     目录都就绪 —— 它们共用一个 socket 一次订阅，先到先连会跟后者抢跑
func (s *Service) advanceGateLocked() {
	if s.allLoadedLocked() && !s.validated {
		s.validated = true
		if changed := s.sel.Validate(s.knownLocked); changed {
			log.Info().Strs("selection", s.sel.IDs()).Msg("selection filtered against catalogs")
			go s.persistSelection(s.sel.IDs())
		}
	}

	for _, group := range application.AllGroups() {
		sup := s.sups[group]
		if sup == nil || !s.groupReadyLocked(group) {
			continue
		}
		natives := s.nativesForLocked(group)
		if len(natives) == 0 {
			continue
		}
		if sup.State() == StateIdle {
			sup.SetSelection(natives)
		}
	}
}

func (s *Service) allLoadedLocked() bool {
	for p, on := range s.enabled {
		if on && !s.loaded[p] {
			return false
		}
	}
	return true
}

// groupReadyLocked 组内全部目录都已过 readiness
func (s *Service) groupReadyLocked(group string) bool {
	any := false
	for _, p := range application.ProvidersOf(group) {
		if !s.enabled[p] {
			continue
		}
		any = true
		if !s.loaded[p] {
			return false
		}
	}
	return any
}

func (s *Service) knownLocked(id string) bool {
	p, ok := domain.ProviderOfID(id)
	if !ok {
		return false
	}
	c := s.catalogs[p]
	return c != nil && c.Has(id)
}

// nativesForLocked 该组当前选中且目录可解析的原生符号
func (s *Service) nativesForLocked(group string) []string {
	var out []string
	for _, id := range s.sel.IDs() {
		p, ok := domain.ProviderOfID(id)
		if !ok || application.GroupOf(p) != group {
			continue
		}
		if c := s.catalogs[p]; c != nil {
			if it, ok := c.Get(id); ok {
				out = append(out, port.NativeOf(it))
			}
		}
	}
	return out
}

// applyUpdate 所有解码路径的汇聚点（supervisor 回调）
// 目录里不存在的 id 静默丢弃，防目录替换前后的推送竞态
func (s *Service) applyUpdate(u port.PriceUpdate) {
	s.mu.Lock()
	known := s.knownLocked(u.ID)
	if u.Baseline > 0 {
		s.store.MergeBaseline(u.ID, u.Baseline)
	}
	changed := s.store.Merge(u.ID, u.PriceNum, known, time.UnixMilli(u.Ts))
	selected := changed && s.sel.Has(u.ID)
	var q domain.Quote
	if selected {
		q, _ = s.store.Get(u.ID)
	}
	s.mu.Unlock()

	if !selected {
		return
	}
	s.requestRefresh()
	if err := s.deps.Repo.UpsertLatestPrice(context.Background(), u.ID, q.Price, q.ChangePercent, u.Ts); err != nil {
		log.Debug().Str("id", u.ID).Err(err).Msg("persist latest price failed")
	}
}

// Toggle 用户增删一个追踪标的
// 成功后立即持久化，并把每组的新 native 列表推给对应 supervisor：
// 按符号订阅的组会整体重连重订阅，广播组只在首选/清空时起停
func (s *Service) Toggle(id string) error {
	s.mu.Lock()
	if s.validated && !s.knownLocked(id) {
		s.mu.Unlock()
		return domain.ErrUnknownInstrument
	}
	added, err := s.sel.Toggle(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	ids := s.sel.IDs()

	type change struct {
		sup     *Supervisor
		natives []string
	}
	var changes []change
	for _, group := range application.AllGroups() {
		sup := s.sups[group]
		if sup == nil || !s.groupReadyLocked(group) {
			continue
		}
		changes = append(changes, change{sup, s.nativesForLocked(group)})
	}
	s.mu.Unlock()

	log.Info().Str("id", id).Bool("added", added).Strs("selection", ids).Msg("selection toggled")
	go s.persistSelection(ids)
	for _, c := range changes {
		c.sup.SetSelection(c.natives)
	}
	s.requestRefresh()
	return nil
}

func (s *Service) persistSelection(ids []string) {
	if err := s.deps.Repo.SaveSelection(context.Background(), ids); err != nil {
		log.Error().Err(err).Msg("persist selection failed")
	}
}

// ReconnectAll 手动重连入口（SIGHUP / 用户命令）
func (s *Service) ReconnectAll() {
	s.mu.Lock()
	sups := make([]*Supervisor, 0, len(s.sups))
	for _, sup := range s.sups {
		sups = append(sups, sup)
	}
	s.mu.Unlock()

	log.Info().Msg("manual reconnect requested")
	for _, sup := range sups {
		if sup.HasSelection() {
			sup.ForceReconnect()
		}
	}
}

// healthCheck 周期巡检：有选中标的的组若不在 Streaming，
// 或 lastMessageAt 超过 staleAfter（socket 开着但没数据 = 假死），强制重连
func (s *Service) healthCheck() {
	s.mu.Lock()
	sups := make([]*Supervisor, 0, len(s.sups))
	for _, sup := range s.sups {
		sups = append(sups, sup)
	}
	s.mu.Unlock()

	now := time.Now()
	for _, sup := range sups {
		if !sup.HasSelection() {
			continue
		}
		st := sup.State()
		stale := st == StateStreaming && now.Sub(sup.LastMessageAt()) > s.deps.StaleAfter
		if st == StateStreaming && !stale {
			continue
		}
		// 握手刚起步的连接给它一个巡检周期的时间
		if (st == StateConnecting || st == StateSubscribing) && now.Sub(sup.LastAttemptAt()) < s.deps.HealthEvery {
			continue
		}
		reason := "not streaming"
		if stale {
			reason = svc.ErrStaleConnection.Error()
		}
		log.Warn().Str("feed", sup.Group()).Str("state", st.String()).Str("reason", reason).Msg("health check forcing reconnect")
		sup.ForceReconnect()
	}
}

// requestRefresh 非阻塞的重绘信号（目录加载、连接状态变化、价格变化都会打）
func (s *Service) requestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// ---- 展示层拉取接口 ----

func (s *Service) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.IDs()
}

func (s *Service) QuoteOf(id string) (domain.Quote, bool) {
	return s.store.Get(id)
}

func (s *Service) StateOf(group string) ConnState {
	s.mu.Lock()
	sup := s.sups[group]
	s.mu.Unlock()
	if sup == nil {
		return StateIdle
	}
	return sup.State()
}

func (s *Service) renderLine() string {
	s.mu.Lock()
	entries := make([]Entry, 0, s.sel.Len())
	for _, id := range s.sel.IDs() {
		e := Entry{ID: id, Symbol: id}
		if p, ok := domain.ProviderOfID(id); ok {
			if c := s.catalogs[p]; c != nil {
				if it, ok := c.Get(id); ok {
					e.Symbol = it.DisplaySymbol
					e.Glyph = it.Glyph
				}
			}
			if sup := s.sups[application.GroupOf(p)]; sup != nil {
				e.Live = sup.State() == StateStreaming
			}
		}
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for i := range entries {
		entries[i].Quote, _ = s.store.Get(entries[i].ID)
	}
	return s.fmtr.Render(entries)
}
