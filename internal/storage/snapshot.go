package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apetrov-dev/piutop/internal/model"
)

// Meta keys recorded alongside each snapshot.
const (
	metaLastUpdatedOn = "last_updated_on"
	metaImportRunID   = "import_run_id"
	metaImportedAt    = "imported_at"
)

// SaveSnapshot replaces the stored snapshot wholesale in one transaction.
// runID tags the import run that produced it.
func (db *DB) SaveSnapshot(snap *model.Snapshot, runID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Wipe-and-replace: the snapshot is a single consistent unit, partial
	// updates would let charts and profiles drift apart.
	for _, table := range []string{"result_pp", "results", "profiles", "charts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertCharts(tx, snap.Charts); err != nil {
		return err
	}
	if err := insertResults(tx, snap.Charts); err != nil {
		return err
	}
	if err := insertProfiles(tx, snap.Profiles); err != nil {
		return err
	}
	if err := insertResultPP(tx, snap.ResultPP); err != nil {
		return err
	}

	meta, err := tx.Prepare("INSERT OR REPLACE INTO meta(key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer meta.Close()
	for key, value := range map[string]string{
		metaLastUpdatedOn: snap.LastUpdatedOn,
		metaImportRunID:   runID,
		metaImportedAt:    time.Now().UTC().Format(time.RFC3339),
	} {
		if _, err := meta.Exec(key, value); err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.log.Debug().Int("charts", len(snap.Charts)).Int("profiles", len(snap.Profiles)).Msg("snapshot saved")
	return nil
}

func insertCharts(tx *sql.Tx, charts map[string]*model.ChartAggregate) error {
	stmt, err := tx.Prepare(`
		INSERT INTO charts(
			id, song, chart_label, chart_type, chart_level, chart_level_num,
			duration, max_total_steps, max_score, interpolated_difficulty,
			latest_score_date, each_result_ids
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, c := range charts {
		ids, err := json.Marshal(c.EachResultID)
		if err != nil {
			return fmt.Errorf("marshal result ids for chart %s: %w", id, err)
		}
		_, err = stmt.Exec(
			id, c.Song, c.ChartLabel, c.ChartType, c.ChartLevel, c.ChartLevelNum,
			c.Duration, c.MaxTotalSteps, c.MaxScore, c.InterpolatedDifficulty,
			c.LatestScoreDate, string(ids),
		)
		if err != nil {
			return fmt.Errorf("insert chart %s: %w", id, err)
		}
	}
	return nil
}

func insertResults(tx *sql.Tx, charts map[string]*model.ChartAggregate) error {
	stmt, err := tx.Prepare(`
		INSERT INTO results(
			id, chart_id, is_previous, position,
			player_id, nickname, arcade_name,
			score, score_raw, accuracy, grade,
			perfects, greats, goods, bads, misses, max_combo,
			mods, calories, date, date_unix_nano,
			is_exact_date, is_rank, is_hj, is_my_best, is_machine_best,
			is_unknown_player, is_intermediate, is_best_grade,
			best_grade_result_id, original_mix, original_label, original_score
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	insert := func(chartID string, res *model.Result, previous bool, position int) error {
		var bestGradeID any
		if res.BestGradeResult != nil {
			bestGradeID = res.BestGradeResult.ID
		}
		var accuracy any
		if res.Accuracy != nil {
			accuracy = *res.Accuracy
		}
		_, err := stmt.Exec(
			res.ID, chartID, boolInt(previous), position,
			res.PlayerID, res.Nickname, res.ArcadeName,
			res.Score, res.ScoreRaw, accuracy, string(res.Grade),
			intValue(res.Perfect), intValue(res.Great), intValue(res.Good),
			intValue(res.Bad), intValue(res.Miss), intValue(res.Combo),
			res.Mods, res.Calories, res.Date, res.DateObject.UnixNano(),
			boolInt(res.IsExactDate), boolInt(res.IsRank), boolInt(res.IsHJ),
			boolInt(res.IsMyBest), boolInt(res.IsMachineBest),
			boolInt(res.IsUnknownPlayer), boolInt(res.IsIntermediateResult),
			boolInt(res.IsBestGradeOnChart),
			bestGradeID, res.OriginalMix, res.OriginalLabel, res.OriginalScore,
		)
		if err != nil {
			return fmt.Errorf("insert result %d on chart %s: %w", res.ID, chartID, err)
		}
		return nil
	}

	for id, c := range charts {
		for i, res := range c.Results {
			if err := insert(id, res, false, i); err != nil {
				return err
			}
		}
		for i, res := range c.PreviousResults {
			if err := insert(id, res, true, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertProfiles(tx *sql.Tx, profiles map[int]*model.Profile) error {
	stmt, err := tx.Prepare(`
		INSERT INTO profiles(
			id, nickname, arcade_name, region,
			result_count, count_acc, sum_accuracy, exp,
			grades, achievements, first_result_nano, last_result_nano,
			rating, rating_history, battle_count, last_battle_nano
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, p := range profiles {
		grades, err := json.Marshal(p.Grades)
		if err != nil {
			return fmt.Errorf("marshal grades for player %d: %w", id, err)
		}
		achievements, err := json.Marshal(p.Achievements)
		if err != nil {
			return fmt.Errorf("marshal achievements for player %d: %w", id, err)
		}
		history, err := json.Marshal(p.RatingHistory)
		if err != nil {
			return fmt.Errorf("marshal rating history for player %d: %w", id, err)
		}
		_, err = stmt.Exec(
			id, p.Nickname, p.ArcadeName, p.Region,
			p.Count, p.CountAcc, p.SumAccuracy, p.Exp,
			string(grades), string(achievements),
			timeNano(p.FirstResultDate), timeNano(p.LastResultDate),
			p.Rating, string(history), p.BattleCount, timeNano(p.LastBattleDate),
		)
		if err != nil {
			return fmt.Errorf("insert profile %d: %w", id, err)
		}
	}
	return nil
}

func insertResultPP(tx *sql.Tx, pp map[int64]model.ResultPP) error {
	stmt, err := tx.Prepare("INSERT INTO result_pp(result_id, pp, pp_ratio) VALUES (?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, v := range pp {
		if _, err := stmt.Exec(id, v.PP, v.PPRatio); err != nil {
			return fmt.Errorf("insert result_pp %d: %w", id, err)
		}
	}
	return nil
}

// LoadSnapshot reads the stored snapshot back. Returns (nil, nil) when no
// snapshot has been saved yet.
func (db *DB) LoadSnapshot() (*model.Snapshot, error) {
	meta, err := db.readMeta()
	if err != nil {
		return nil, err
	}

	charts, err := db.loadCharts()
	if err != nil {
		return nil, err
	}
	if len(charts) == 0 && meta[metaLastUpdatedOn] == "" {
		return nil, nil
	}
	if err := db.loadResults(charts); err != nil {
		return nil, err
	}

	profiles, err := db.loadProfiles()
	if err != nil {
		return nil, err
	}
	indexProfiles(profiles, charts)

	pp, err := db.loadResultPP()
	if err != nil {
		return nil, err
	}

	return &model.Snapshot{
		Charts:        charts,
		Profiles:      profiles,
		ResultPP:      pp,
		LastUpdatedOn: meta[metaLastUpdatedOn],
	}, nil
}

// LastUpdatedOn returns the stored feed cursor, or "" when no snapshot exists.
func (db *DB) LastUpdatedOn() (string, error) {
	meta, err := db.readMeta()
	if err != nil {
		return "", err
	}
	return meta[metaLastUpdatedOn], nil
}

func (db *DB) readMeta() (map[string]string, error) {
	rows, err := db.conn.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func (db *DB) loadCharts() (map[string]*model.ChartAggregate, error) {
	rows, err := db.conn.Query(`
		SELECT id, song, chart_label, chart_type, chart_level, chart_level_num,
		       duration, max_total_steps, max_score, interpolated_difficulty,
		       latest_score_date, each_result_ids
		FROM charts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	charts := map[string]*model.ChartAggregate{}
	for rows.Next() {
		c := &model.ChartAggregate{}
		var resultIDs string
		if err := rows.Scan(
			&c.SharedChartID, &c.Song, &c.ChartLabel, &c.ChartType, &c.ChartLevel,
			&c.ChartLevelNum, &c.Duration, &c.MaxTotalSteps, &c.MaxScore,
			&c.InterpolatedDifficulty, &c.LatestScoreDate, &resultIDs,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(resultIDs), &c.EachResultID); err != nil {
			return nil, fmt.Errorf("unmarshal result ids for chart %s: %w", c.SharedChartID, err)
		}
		charts[c.SharedChartID] = c
	}
	return charts, rows.Err()
}

func (db *DB) loadResults(charts map[string]*model.ChartAggregate) error {
	rows, err := db.conn.Query(`
		SELECT id, chart_id, is_previous,
		       player_id, nickname, arcade_name,
		       score, score_raw, accuracy, grade,
		       perfects, greats, goods, bads, misses, max_combo,
		       mods, calories, date, date_unix_nano,
		       is_exact_date, is_rank, is_hj, is_my_best, is_machine_best,
		       is_unknown_player, is_intermediate, is_best_grade,
		       best_grade_result_id, original_mix, original_label, original_score
		FROM results ORDER BY chart_id, is_previous, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	// best-grade links resolve after all of a chart's rows are in memory
	type link struct {
		res    *model.Result
		bestID int64
	}
	byChart := map[string]map[int64]*model.Result{}
	var links []link

	for rows.Next() {
		res := &model.Result{}
		var (
			chartID     string
			previous    int
			accuracy    sql.NullFloat64
			grade       string
			hits        [6]sql.NullInt64
			dateNano    int64
			flags       [8]int
			bestGradeID sql.NullInt64
		)
		if err := rows.Scan(
			&res.ID, &chartID, &previous,
			&res.PlayerID, &res.Nickname, &res.ArcadeName,
			&res.Score, &res.ScoreRaw, &accuracy, &grade,
			&hits[0], &hits[1], &hits[2], &hits[3], &hits[4], &hits[5],
			&res.Mods, &res.Calories, &res.Date, &dateNano,
			&flags[0], &flags[1], &flags[2], &flags[3], &flags[4],
			&flags[5], &flags[6], &flags[7],
			&bestGradeID, &res.OriginalMix, &res.OriginalLabel, &res.OriginalScore,
		); err != nil {
			return err
		}

		res.SharedChartID = chartID
		res.Grade = model.Grade(grade)
		if accuracy.Valid {
			v := accuracy.Float64
			res.Accuracy = &v
		}
		res.Perfect, res.Great, res.Good = intPtr(hits[0]), intPtr(hits[1]), intPtr(hits[2])
		res.Bad, res.Miss, res.Combo = intPtr(hits[3]), intPtr(hits[4]), intPtr(hits[5])
		res.DateObject = nanoTime(dateNano)
		res.IsExactDate = flags[0] != 0
		res.IsRank = flags[1] != 0
		res.IsHJ = flags[2] != 0
		res.IsMyBest = flags[3] != 0
		res.IsMachineBest = flags[4] != 0
		res.IsUnknownPlayer = flags[5] != 0
		res.IsIntermediateResult = flags[6] != 0
		res.IsBestGradeOnChart = flags[7] != 0

		chart := charts[chartID]
		if chart == nil {
			return fmt.Errorf("result %d references unknown chart %s", res.ID, chartID)
		}
		if previous != 0 {
			chart.PreviousResults = append(chart.PreviousResults, res)
		} else {
			chart.Results = append(chart.Results, res)
		}

		if byChart[chartID] == nil {
			byChart[chartID] = map[int64]*model.Result{}
		}
		byChart[chartID][res.ID] = res
		if bestGradeID.Valid {
			links = append(links, link{res: res, bestID: bestGradeID.Int64})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range links {
		l.res.BestGradeResult = byChart[l.res.SharedChartID][l.bestID]
	}
	return nil
}

func (db *DB) loadProfiles() (map[int]*model.Profile, error) {
	rows, err := db.conn.Query(`
		SELECT id, nickname, arcade_name, region,
		       result_count, count_acc, sum_accuracy, exp,
		       grades, achievements, first_result_nano, last_result_nano,
		       rating, rating_history, battle_count, last_battle_nano
		FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := map[int]*model.Profile{}
	for rows.Next() {
		p := &model.Profile{}
		var grades, achievements, history string
		var firstNano, lastNano, battleNano int64
		if err := rows.Scan(
			&p.ID, &p.Nickname, &p.ArcadeName, &p.Region,
			&p.Count, &p.CountAcc, &p.SumAccuracy, &p.Exp,
			&grades, &achievements, &firstNano, &lastNano,
			&p.Rating, &history, &p.BattleCount, &battleNano,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(grades), &p.Grades); err != nil {
			return nil, fmt.Errorf("unmarshal grades for player %d: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(achievements), &p.Achievements); err != nil {
			return nil, fmt.Errorf("unmarshal achievements for player %d: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(history), &p.RatingHistory); err != nil {
			return nil, fmt.Errorf("unmarshal rating history for player %d: %w", p.ID, err)
		}
		p.FirstResultDate = nanoTime(firstNano)
		p.LastResultDate = nanoTime(lastNano)
		p.LastBattleDate = nanoTime(battleNano)
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// indexProfiles rebuilds the per-grade and per-level best-result indexes from
// the chart set; they are derived data and are not persisted.
func indexProfiles(profiles map[int]*model.Profile, charts map[string]*model.ChartAggregate) {
	for _, p := range profiles {
		p.ResultsByGrade = make(map[model.Grade][]model.ResultOnChart)
		p.ResultsByLevel = make(map[int][]model.ResultOnChart, model.ChartLevelMax)
		for lvl := model.ChartLevelMin; lvl <= model.ChartLevelMax; lvl++ {
			p.ResultsByLevel[lvl] = nil
		}
	}
	for _, chart := range charts {
		if chart.ChartType == "COOP" {
			continue
		}
		for _, res := range chart.Results {
			if res.IsUnknownPlayer || res.IsIntermediateResult {
				continue
			}
			p := profiles[res.PlayerID]
			if p == nil {
				continue
			}
			entry := model.ResultOnChart{Result: res, Chart: chart}
			p.ResultsByGrade[res.Grade] = append(p.ResultsByGrade[res.Grade], entry)
			p.ResultsByLevel[chart.ChartLevelNum] = append(p.ResultsByLevel[chart.ChartLevelNum], entry)
		}
	}
}

func (db *DB) loadResultPP() (map[int64]model.ResultPP, error) {
	rows, err := db.conn.Query("SELECT result_id, pp, pp_ratio FROM result_pp")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pp := map[int64]model.ResultPP{}
	for rows.Next() {
		var id int64
		var v model.ResultPP
		if err := rows.Scan(&id, &v.PP, &v.PPRatio); err != nil {
			return nil, err
		}
		pp[id] = v
	}
	return pp, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timeNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nanoTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
