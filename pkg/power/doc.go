/*
Package power forecasts the electrical power budget and runs the power
management decision tree.

A Manager owns three catalogs: battery banks, loads and generation sources.
Only banks that are active and not isolated contribute to the balance.

ExecuteAction dispatches on a trigger:

	low_soc          average SoC <10  emergency_mode  (sheds science and auxiliary loads)
	                 average SoC <20  shed_load
	                 otherwise        switch_battery_bank
	thermal_runaway                   isolate_bank    (irreversible)
	solar_storm      severity >7      shed_load
	                 otherwise        activate_backup (negative savings: added generation)
	load_spike                        shed_load

The action is appended to history before it is applied and removed again if
application fails. Critical loads are never shed.

UpdateBatteryState closes a CycleRecord whenever SoC moves more than 10 points
from the last cycle end; only cycles deeper than 20 points count toward the
bank's cycle count. Runaway risk accumulates by (T-45)*2 on every reading above
45°C and is never decayed.
*/
package power
