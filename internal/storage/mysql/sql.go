package mysql

const insertListingsPrefix = "INSERT INTO listings\n" +
	"  (source_id, url, price, area, rooms, region, district, scraped_at, analysis_id)\nVALUES "

const insertListingsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  price       = VALUES(price),\n" +
	"  area        = VALUES(area),\n" +
	"  rooms       = VALUES(rooms),\n" +
	"  district    = VALUES(district),\n" +
	"  scraped_at  = VALUES(scraped_at),\n" +
	"  analysis_id = VALUES(analysis_id),\n" +
	"  updated_at  = CURRENT_TIMESTAMP\n"

const insertEmptyRungSQL = `
INSERT INTO search_misses (region, district, rung)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE seen_at = CURRENT_TIMESTAMP, hits = hits + 1
`

// Newest snapshots first; aligns with the (region, district, scraped_at) index.
const recentByDistrictSQL = `
SELECT source_id, url, price, area, rooms, region, district, scraped_at
FROM listings
WHERE region = ? AND district = ?
ORDER BY scraped_at DESC, source_id DESC
LIMIT ?
`
